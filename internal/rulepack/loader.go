package rulepack

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

var packExtensions = []string{".yaml", ".yml", ".json"}

// Decode reads a pack in the given format, ".yaml", ".yml" or ".json".
func Decode(r io.Reader, ext string) (*Pack, error) {
	var p Pack
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errors.New("empty pack")
			}
			return nil, errors.Wrap(err, "decode yaml")
		}
	case ".json":
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, errors.Wrap(err, "read")
		}
		if err := p.Decode(jx.DecodeBytes(data)); err != nil {
			return nil, errors.Wrap(err, "decode json")
		}
	default:
		return nil, errors.Errorf("unsupported pack format %q", ext)
	}
	return &p, nil
}

// LoadFile reads and validates one pack. A ".gz" suffix is decompressed
// before decoding by the inner extension.
func LoadFile(ctx context.Context, path string) (*Pack, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	name := path
	if strings.EqualFold(filepath.Ext(name), ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}

	p, err := Decode(r, filepath.Ext(name))
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	p.Source = path
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Load reads every pack named by paths concurrently. Directories are
// expanded to the pack files they contain. Packs are returned in path order.
func Load(ctx context.Context, paths ...string) ([]*Pack, error) {
	files, err := expand(paths)
	if err != nil {
		return nil, err
	}

	packs := make([]*Pack, len(files))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			p, err := LoadFile(ctx, path)
			if err != nil {
				return err
			}
			packs[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return packs, nil
}

func expand(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, errors.Wrapf(err, "check %s", path)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read dir %s", path)
		}
		for _, e := range entries {
			if e.IsDir() || !isPackFile(e.Name()) {
				continue
			}
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	return files, nil
}

func isPackFile(name string) bool {
	name = strings.ToLower(name)
	name = strings.TrimSuffix(name, ".gz")
	return slices.Contains(packExtensions, filepath.Ext(name))
}
