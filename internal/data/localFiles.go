package data

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/contactkeval/option-lattice/internal/cme"
	"github.com/contactkeval/option-lattice/internal/logger"
)

// localFileDataProvider serves chains out of a SPAN .pa2 file, or out of a
// settlement report written by cme.WriteReport when the path ends in .txt.
type localFileDataProvider struct {
	path      string
	filter    cme.Filter
	secondary Provider

	loadOnce sync.Once
	file     *cme.File
	loadErr  error
}

// NewLocalFileDataProvider convenience constructor. The file is read on the
// first GetChain call.
func NewLocalFileDataProvider(path string, secondary Provider) *localFileDataProvider {
	return &localFileDataProvider{path: path, filter: cme.DefaultFilter(), secondary: secondary}
}

// WithFilter replaces the record filter applied to .pa2 input.
func (p *localFileDataProvider) WithFilter(f cme.Filter) *localFileDataProvider {
	p.filter = f
	return p
}

func (p *localFileDataProvider) Secondary() Provider {
	return p.secondary
}

func (p *localFileDataProvider) load() (*cme.File, error) {
	p.loadOnce.Do(func() {
		f, err := os.Open(p.path)
		if err != nil {
			p.loadErr = fmt.Errorf("open settlements: %w", err)
			return
		}
		defer f.Close()

		if strings.HasSuffix(strings.ToLower(p.path), ".txt") {
			p.file, p.loadErr = cme.ReadReport(f)
		} else {
			p.file, p.loadErr = cme.Parse(f, p.filter)
		}
	})
	return p.file, p.loadErr
}

func (p *localFileDataProvider) GetChain(code string, month cme.Month) (*Chain, error) {
	file, err := p.load()
	if err != nil {
		if p.secondary != nil {
			logger.Infof("%s unavailable (%v), using secondary provider", p.path, err)
			return p.secondary.GetChain(code, month)
		}
		return nil, err
	}

	c, err := ChainFromFile(file, code, month)
	if errors.Is(err, ErrNoChain) && p.secondary != nil {
		logger.Debugf("%s %s not in %s, using secondary provider", code, month, p.path)
		return p.secondary.GetChain(code, month)
	}
	return c, err
}
