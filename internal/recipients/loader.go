// Package recipients turns a line-delimited source into an ordered recipient list.
package recipients

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jmehdipour/wa-bulk-sender/internal/model"
	"github.com/jmehdipour/wa-bulk-sender/internal/util"
)

// ErrSourceUnavailable is returned when the recipient source cannot be read.
var ErrSourceUnavailable = errors.New("recipient source unavailable")

// maxLine caps a single line; recipient ids are short, anything bigger is garbage.
const maxLine = 64 << 10

type Option func(*options)

type options struct {
	normalize   bool
	countryCode string
}

// Normalize rewrites every entry with util.NormalizePhone before it is kept.
func Normalize(countryCode string) Option {
	return func(o *options) {
		o.normalize = true
		o.countryCode = countryCode
	}
}

// Load reads one recipient per line, trimming whitespace and dropping empty
// lines. File order and duplicates are preserved.
func Load(r io.Reader, opts ...Option) ([]model.Recipient, error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLine)

	var out []model.Recipient
	first := true
	for sc.Scan() {
		line := sc.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}

		s := strings.TrimSpace(line)
		if o.normalize {
			s = util.NormalizePhone(s, o.countryCode)
		}
		if s == "" {
			continue
		}
		out = append(out, model.Recipient(s))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	return out, nil
}

// LoadFile opens path and delegates to Load.
func LoadFile(path string, opts ...Option) ([]model.Recipient, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer f.Close()

	return Load(f, opts...)
}
