package config

// Application constants
const (
	AppName    = "priceeda"
	AppVersion = "1.0.0"
)
