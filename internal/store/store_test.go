package store

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// crashingFs simulates a process dying between the temp write and the
// rename: every Rename fails.
type crashingFs struct {
	afero.Fs
}

func (f crashingFs) Rename(oldname, newname string) error {
	return errors.New("simulated crash before rename")
}

func listDir(t *testing.T, fs afero.Fs, dir string) []string {
	t.Helper()
	infos, err := afero.ReadDir(fs, dir)
	require.NoError(t, err)
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names
}
