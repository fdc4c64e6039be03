package store

import (
	"maps"
	"slices"
	"strconv"

	"LevelVault/internal/gamesave/domain/wire"
)

// FolderNames 是文件夹编号到名字的映射（GLM_19 本地 / GLM_18 在线）。
type FolderNames map[int]string

// IDs 升序。
func (f FolderNames) IDs() []int {
	return slices.Sorted(maps.Keys(f))
}

func (f FolderNames) dict() *wire.Dict {
	d := wire.NewDict()
	for _, id := range f.IDs() {
		d.Set(strconv.Itoa(id), wire.String(f[id]))
	}
	return d
}

func foldersFromDict(d *wire.Dict) FolderNames {
	out := make(FolderNames)
	if d == nil {
		return out
	}
	for _, e := range d.Entries() {
		id, err := strconv.Atoi(e.Key)
		if err != nil {
			continue
		}
		out[id] = e.Value.Text
	}
	return out
}
