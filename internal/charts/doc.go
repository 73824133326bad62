// Package charts renders analysis results as images.
//
// Line charts (moving average, volatility) are drawn with go-chart and can
// be written as PNG or SVG. The four-panel decomposition and the annotated
// correlation heatmap are composed as raster images and always written as
// PNG. Rendering never computes statistics; callers pass finished
// analysis results in.
package charts
