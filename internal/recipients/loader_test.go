package recipients_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmehdipour/wa-bulk-sender/internal/model"
	"github.com/jmehdipour/wa-bulk-sender/internal/recipients"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestLoad(t *testing.T) {
	t.Run("trims and drops empty lines in order", func(t *testing.T) {
		got, err := recipients.Load(strings.NewReader("+1\n\n  \n+2"))

		require.NoError(t, err)
		assert.Equal(t, []model.Recipient{"+1", "+2"}, got)
	})

	t.Run("keeps duplicates and crlf input", func(t *testing.T) {
		got, err := recipients.Load(strings.NewReader("\ufeff+3\r\n  +1  \r\n+3\r\n"))

		require.NoError(t, err)
		assert.Equal(t, []model.Recipient{"+3", "+1", "+3"}, got)
	})

	t.Run("malformed entries pass through", func(t *testing.T) {
		got, err := recipients.Load(strings.NewReader("not-a-number\n"))

		require.NoError(t, err)
		assert.Equal(t, []model.Recipient{"not-a-number"}, got)
	})

	t.Run("empty source", func(t *testing.T) {
		got, err := recipients.Load(strings.NewReader(""))

		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("normalize", func(t *testing.T) {
		got, err := recipients.Load(strings.NewReader("0912 123 4567\n---\n+44 20 7946 0000\n"), recipients.Normalize("98"))

		require.NoError(t, err)
		assert.Equal(t, []model.Recipient{"+989121234567", "+442079460000"}, got)
	})

	t.Run("read error", func(t *testing.T) {
		_, err := recipients.Load(failingReader{})

		assert.ErrorIs(t, err, recipients.ErrSourceUnavailable)
	})
}

func TestLoadFile(t *testing.T) {
	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "numbers.txt")
		require.NoError(t, os.WriteFile(path, []byte("+1\n+2\n"), 0o600))

		got, err := recipients.LoadFile(path)

		require.NoError(t, err)
		assert.Equal(t, []model.Recipient{"+1", "+2"}, got)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := recipients.LoadFile(filepath.Join(t.TempDir(), "nope.txt"))

		assert.ErrorIs(t, err, recipients.ErrSourceUnavailable)
	})
}
