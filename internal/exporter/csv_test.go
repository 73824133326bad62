package exporter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"priceeda/internal/config"
)

// setupTestEnv returns a writer rooted in a temporary directory
func setupTestEnv(t *testing.T) (*CSVWriter, *config.Paths) {
	t.Helper()

	paths, err := config.ResolvePaths(config.Default().Paths, t.TempDir())
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())

	return NewCSVWriter(paths, nil), paths
}

// readCSV reads a written file, stripping the BOM
func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	content = bytes.TrimPrefix(content, []byte{0xEF, 0xBB, 0xBF})
	records, err := csv.NewReader(bytes.NewReader(content)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestNewCSVWriter(t *testing.T) {
	paths := &config.Paths{}
	writer := NewCSVWriter(paths, nil)

	assert.NotNil(t, writer)
	assert.Equal(t, paths, writer.paths)
	assert.NotNil(t, writer.logger)
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	writer, paths := setupTestEnv(t)

	tests := []struct {
		name     string
		filePath string
		options  WriteOptions
		validate func(t *testing.T, content []byte)
	}{
		{
			name:     "basic write with headers",
			filePath: "test_basic.csv",
			options: WriteOptions{
				Headers: []string{"Date", "Price"},
				Records: [][]string{
					{"2024-01-01", "10.00"},
					{"2024-01-02", "11.00"},
				},
			},
			validate: func(t *testing.T, content []byte) {
				lines := strings.Split(strings.TrimSpace(string(content)), "\n")
				assert.Equal(t, []string{"Date,Price", "2024-01-01,10.00", "2024-01-02,11.00"}, lines)
			},
		},
		{
			name:     "write with BOM prefix",
			filePath: "test_bom.csv",
			options: WriteOptions{
				Headers:   []string{"Event"},
				Records:   [][]string{{"Rate Cut"}},
				BOMPrefix: true,
			},
			validate: func(t *testing.T, content []byte) {
				assert.True(t, bytes.HasPrefix(content, []byte{0xEF, 0xBB, 0xBF}))
				assert.Equal(t, "Event\nRate Cut\n", string(content[3:]))
			},
		},
		{
			name:     "nested directory is created",
			filePath: filepath.Join("nested", "deep", "out.csv"),
			options: WriteOptions{
				Records: [][]string{{"a", "b"}},
			},
			validate: func(t *testing.T, content []byte) {
				assert.Equal(t, "a,b\n", string(content))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fullPath, err := writer.WriteCSV(tt.filePath, tt.options)
			require.NoError(t, err)
			assert.Equal(t, paths.GetExportPath(tt.filePath), fullPath)

			content, err := os.ReadFile(fullPath)
			require.NoError(t, err)
			tt.validate(t, content)
		})
	}
}

func TestCSVWriter_AppendToCSV(t *testing.T) {
	writer, _ := setupTestEnv(t)

	fullPath, err := writer.WriteSimpleCSV("append.csv", []string{"Col1", "Col2"}, [][]string{{"a", "b"}})
	require.NoError(t, err)

	_, err = writer.AppendToCSV("append.csv", [][]string{{"c", "d"}})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"Col1", "Col2"}, {"a", "b"}, {"c", "d"}}, readCSV(t, fullPath))
}

func TestCSVWriter_ResolvePath(t *testing.T) {
	writer, paths := setupTestEnv(t)
	abs := filepath.Join(t.TempDir(), "file.csv")

	tests := []struct {
		name      string
		inputPath string
		expected  string
	}{
		{"absolute path", abs, abs},
		{"reports prefix", "reports/summary.csv", paths.GetReportPath("summary.csv")},
		{"default to exports", "impact.csv", paths.GetExportPath("impact.csv")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, writer.resolvePath(tt.inputPath))
		})
	}
}

func TestCSVWriter_SpecialCharacters(t *testing.T) {
	writer, _ := setupTestEnv(t)

	records := [][]string{
		{"OPEC, cut", `Label with "quotes"`},
		{"Notes with\nnewlines", "Ünïcödé"},
	}
	fullPath, err := writer.WriteSimpleCSV("special.csv", []string{"Event", "Note"}, records)
	require.NoError(t, err)

	got := readCSV(t, fullPath)
	require.Len(t, got, 3)
	assert.Equal(t, records, got[1:])
}

func TestCSVWriter_ConcurrentWrites(t *testing.T) {
	writer, _ := setupTestEnv(t)

	const numGoroutines = 8
	const recordsPerGoroutine = 50

	var wg sync.WaitGroup
	errs := make(chan error, numGoroutines)
	written := make([]string, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			records := make([][]string, recordsPerGoroutine)
			for j := range records {
				records[j] = []string{fmt.Sprintf("r%d", id), fmt.Sprintf("%d", j)}
			}
			path, err := writer.WriteSimpleCSV(filepath.Join("concurrent", fmt.Sprintf("file_%d.csv", id)), []string{"Name", "Number"}, records)
			if err != nil {
				errs <- err
				return
			}
			written[id] = path
		}(i)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	for _, path := range written {
		assert.Len(t, readCSV(t, path), recordsPerGoroutine+1)
	}
}

func TestCSVWriter_StreamWriter(t *testing.T) {
	writer, paths := setupTestEnv(t)

	stream, err := writer.CreateStreamWriter("stream.csv", []string{"Date", "Value"})
	require.NoError(t, err)
	for i := 0; i < 1000; i++ {
		require.NoError(t, stream.WriteRecord([]string{"2024-01-01", fmt.Sprintf("%d", i)}))
	}
	require.NoError(t, stream.Close())

	records := readCSV(t, paths.GetExportPath("stream.csv"))
	require.Len(t, records, 1001)
	assert.Equal(t, []string{"Date", "Value"}, records[0])
	assert.Equal(t, "999", records[1000][1])
}

func TestCSVWriter_ErrorScenarios(t *testing.T) {
	writer, paths := setupTestEnv(t)

	// a regular file where a directory is needed
	blocker := paths.GetExportPath("blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	_, err := writer.WriteSimpleCSV(filepath.Join("blocker", "out.csv"), nil, nil)
	assert.Error(t, err)

	_, err = writer.CreateStreamWriter(filepath.Join("blocker", "stream.csv"), nil)
	assert.Error(t, err)
}
