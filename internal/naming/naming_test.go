package naming

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xferrors "github.com/input-output-hk/blobxfer/errors"
)

func fixedID(id string) Option {
	return WithIDGenerator(func() string { return id })
}

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		wantRoot    string
		wantSubPath string
		wantStem    string
		wantFrag    string
		wantCompose string
	}{
		{
			name:        "nested path",
			path:        "data/2024/report.csv",
			wantRoot:    "data",
			wantSubPath: "2024",
			wantStem:    "report",
			wantFrag:    "data/chunks/2024/report/report_id",
			wantCompose: "data/chunks/2024/report/compose/report_id",
		},
		{
			name:        "deeply nested",
			path:        "root/sub/dir/file.ext",
			wantRoot:    "root",
			wantSubPath: "sub/dir",
			wantStem:    "file",
			wantFrag:    "root/chunks/sub/dir/file/file_id",
			wantCompose: "root/chunks/sub/dir/file/compose/file_id",
		},
		{
			name:        "no interior segments",
			path:        "data/report.csv",
			wantRoot:    "data",
			wantStem:    "report",
			wantFrag:    "data/chunks/report/report_id",
			wantCompose: "data/chunks/report/compose/report_id",
		},
		{
			name:        "single segment",
			path:        "report.csv",
			wantStem:    "report",
			wantFrag:    "chunks/report/report_id",
			wantCompose: "chunks/report/compose/report_id",
		},
		{
			name:        "multiple extensions",
			path:        "backups/db.tar.gz",
			wantRoot:    "backups",
			wantStem:    "db.tar",
			wantFrag:    "backups/chunks/db.tar/db.tar_id",
			wantCompose: "backups/chunks/db.tar/compose/db.tar_id",
		},
		{
			name:        "dotfile",
			path:        "cfg/.env",
			wantRoot:    "cfg",
			wantStem:    ".env",
			wantFrag:    "cfg/chunks/.env/.env_id",
			wantCompose: "cfg/chunks/.env/compose/.env_id",
		},
		{
			name:        "no extension",
			path:        "bin/tool",
			wantRoot:    "bin",
			wantStem:    "tool",
			wantFrag:    "bin/chunks/tool/tool_id",
			wantCompose: "bin/chunks/tool/compose/tool_id",
		},
		{
			name:        "leading slash and empty segments",
			path:        "/data//2024/report.csv",
			wantRoot:    "data",
			wantSubPath: "2024",
			wantStem:    "report",
			wantFrag:    "data/chunks/2024/report/report_id",
			wantCompose: "data/chunks/2024/report/compose/report_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse(tt.path, fixedID("id"))
			require.NoError(t, err)

			assert.Equal(t, tt.wantRoot, s.Root)
			assert.Equal(t, tt.wantSubPath, s.SubPath)
			assert.Equal(t, tt.wantStem, s.Stem)
			assert.Equal(t, tt.wantFrag, s.FragmentName())
			assert.Equal(t, tt.wantCompose, s.ComposeName())
			assert.NotContains(t, s.FragmentName(), "//")
			assert.False(t, strings.HasPrefix(s.FragmentName(), "/"))
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{name: "empty", path: ""},
		{name: "only slashes", path: "///"},
		{name: "trailing slash", path: "data/2024/"},
		{name: "dot segment", path: "data/./report.csv"},
		{name: "parent segment", path: "data/../report.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.path)
			require.Error(t, err)
			assert.True(t, xferrors.IsConfiguration(err))
		})
	}
}

func TestScheme_UniqueNames(t *testing.T) {
	s, err := Parse("data/2024/report.csv")
	require.NoError(t, err)

	seen := make(map[string]struct{}, 2000)
	for i := 0; i < 1000; i++ {
		for _, name := range []string{s.FragmentName(), s.ComposeName()} {
			_, dup := seen[name]
			require.False(t, dup, "duplicate name %s", name)
			seen[name] = struct{}{}
		}
	}
}

func TestScheme_ConcurrentSchemesDoNotCollide(t *testing.T) {
	a, err := Parse("data/2024/report.csv")
	require.NoError(t, err)
	b, err := Parse("data/2024/report.csv")
	require.NoError(t, err)

	var (
		mu   sync.Mutex
		seen = make(map[string]struct{})
		wg   sync.WaitGroup
	)
	for _, s := range []*Scheme{a, b} {
		wg.Add(1)
		go func(s *Scheme) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				name := s.FragmentName()
				mu.Lock()
				seen[name] = struct{}{}
				mu.Unlock()
			}
		}(s)
	}
	wg.Wait()

	assert.Len(t, seen, 1000)
}

func TestScheme_Prefix(t *testing.T) {
	var n int
	s, err := Parse("data/2024/report.csv", WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("%03d", n)
	}))
	require.NoError(t, err)

	assert.Equal(t, "data/chunks/2024/report", s.Prefix())
	assert.Equal(t, "data/chunks/2024/report/report_001", s.FragmentName())
	assert.Equal(t, "data/chunks/2024/report/compose/report_002", s.ComposeName())
	assert.Equal(t, "data/2024/report.csv", s.Path)
}
