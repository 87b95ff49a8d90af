package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/bstardust/photo-meta/internal/config"
	"github.com/bstardust/photo-meta/internal/convert"
	"github.com/bstardust/photo-meta/internal/exif"
	"github.com/bstardust/photo-meta/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	withGPS := filepath.Join(dir, "gps.jpg")
	require.NoError(t, os.WriteFile(withGPS, testutil.JPEG(8, 8, testutil.EXIF{
		Make: "Canon",
		Lat:  &testutil.DMS{Deg: 51, Min: 30, Sec: 0, Ref: "N"},
		Long: &testutil.DMS{Deg: 0, Min: 7, Sec: 30, Ref: "W"},
	}), 0o600))

	plain := filepath.Join(dir, "plain.jpg")
	require.NoError(t, os.WriteFile(plain, testutil.JPEG(8, 8, testutil.EXIF{}), 0o600))

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"inspect", "--extractor", "goexif", withGPS, plain})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	var results []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &results))
	require.Len(t, results, 2)

	assert.Equal(t, withGPS, results[0]["file"])
	assert.Equal(t, true, results[0]["hasLocationData"])
	assert.InDelta(t, 51.5, results[0]["latitude"], 1e-9)
	assert.InDelta(t, -0.125, results[0]["longitude"], 1e-9)
	assert.Equal(t, "Canon", results[0]["make"])

	assert.Equal(t, plain, results[1]["file"])
	assert.Equal(t, false, results[1]["hasLocationData"])
	assert.NotContains(t, results[1], "error")
}

func TestInspect_MissingFile(t *testing.T) {
	chdir(t, t.TempDir())

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"inspect", "--extractor", "goexif", "nope.jpg"})

	err := cmd.ExecuteContext(context.Background())
	assert.ErrorContains(t, err, "1 of 1 files could not be read")
	assert.Contains(t, out.String(), `"error"`)
}

func TestInspect_InvalidConfig(t *testing.T) {
	chdir(t, t.TempDir())

	cmd := newRootCommand()
	cmd.SetArgs([]string{"inspect", "--extractor", "magic", "x.jpg"})
	assert.ErrorContains(t, cmd.ExecuteContext(context.Background()), "unknown extractor")
}

func TestNewExtractor(t *testing.T) {
	e, err := newExtractor(config.ExtractorConfig{Kind: "goexif"})
	require.NoError(t, err)
	assert.IsType(t, &exif.Extractor{}, e)

	_, err = newExtractor(config.ExtractorConfig{Kind: "exiftool", ExiftoolPath: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)

	e, err = newExtractor(config.ExtractorConfig{Kind: "auto", ExiftoolPath: filepath.Join(t.TempDir(), "missing")})
	require.NoError(t, err)
	assert.IsType(t, &exif.Extractor{}, e, "auto falls back when exiftool is missing")
}

func TestNewConverter(t *testing.T) {
	assert.Nil(t, newConverter(config.ConverterConfig{Enabled: false}))

	c := newConverter(config.ConverterConfig{Enabled: true, Kind: "native", Quality: 80, MaxConcurrent: 1})
	assert.IsType(t, &convert.Limited{}, c)
}

func TestNewPersister(t *testing.T) {
	cfg := config.New()

	p, store, err := newPersister(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Nil(t, store)

	cfg.Storage.Enabled = true
	cfg.Storage.Backend = "blob"
	cfg.Storage.BlobURL = "mem://"
	p, store, err = newPersister(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()
	assert.NotNil(t, p)
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
