package migrate

import (
	"slices"

	"LevelVault/internal/gamesave/domain/level"
	"LevelVault/internal/gamesave/domain/object"
)

// Range 把 [SourceStart, SourceEnd] 平移到以 TargetStart 开头的窗口。
type Range struct {
	SourceStart int `json:"source_start" mapstructure:"source_start"`
	SourceEnd   int `json:"source_end" mapstructure:"source_end"`
	TargetStart int `json:"target_start" mapstructure:"target_start"`
}

func (r Range) Difference() int { return r.TargetStart - r.SourceStart }

func (r Range) contains(id int) bool { return id >= r.SourceStart && id <= r.SourceEnd }

func (r Range) validate(i, lo, hi int) error {
	bad := func(reason string) error {
		return ErrInvalidRange.WithData("reason", reason).WithData("index", i).
			WithData("source_start", r.SourceStart).WithData("source_end", r.SourceEnd).WithData("target_start", r.TargetStart)
	}
	switch {
	case r.SourceStart < lo:
		return bad("source start below id space")
	case r.SourceEnd < r.SourceStart:
		return bad("source end before start")
	case r.SourceEnd > hi:
		return bad("source end above id space")
	case r.TargetStart < lo:
		return bad("target start below id space")
	case r.TargetStart+(r.SourceEnd-r.SourceStart) > hi:
		return bad("target window above id space")
	}
	return nil
}

// ApplyRanges 按列表顺序逐个应用区间：对象上所有 kind 类引用落在源区间内的都加上差值。
// 颜色迁移同时搬动 channels 中的通道记录及其复制来源。
// 所有区间先整体校验，任一非法则返回 ErrInvalidRange 且不做任何修改。
// kind 未知时 panic。差值为 0 的区间是空操作。
func ApplyRanges(objs *object.Collection, channels *level.ColorChannelSet, ranges []Range, kind object.IDKind) error {
	lo, hi := kind.Bounds()
	for i, r := range ranges {
		if err := r.validate(i, lo, hi); err != nil {
			return err
		}
	}
	for _, r := range ranges {
		applyRange(objs, channels, r, kind)
	}
	return nil
}

func applyRange(objs *object.Collection, channels *level.ColorChannelSet, r Range, kind object.IDKind) {
	d := r.Difference()
	if d == 0 {
		return
	}
	if objs != nil {
		for _, o := range objs.All() {
			if !slices.ContainsFunc(o.IDs(kind), func(id int16) bool { return r.contains(int(id)) }) {
				continue
			}
			objs.Mutate(o, func(o *object.Object) {
				o.ForEachID(kind, func(id *int16) {
					if r.contains(int(*id)) {
						*id += int16(d)
					}
				})
			})
		}
	}
	if kind == object.KindColor && channels != nil {
		moveChannels(channels, r)
	}
}

// moveChannels 以迁移前的快照为准重建通道：源区间内的记录搬到新位置，
// 复制来源落在源区间内的也一起改写。搬入的记录覆盖目标位置上未搬动的记录。
func moveChannels(channels *level.ColorChannelSet, r Range) {
	d := r.Difference()
	snapshot := channels.Clone()
	copies := snapshot.CopiesFrom()

	var moved []*level.ColorChannel
	for _, id := range snapshot.IDs() {
		src, _ := snapshot.Get(id)
		rec := *src
		if from, ok := copies[id]; ok && r.contains(int(from)) {
			rec.CopiedID = from + int16(d)
		}
		// 特殊通道只改复制来源，自身位置不动
		if int(id) <= object.MaxColorID && r.contains(int(id)) {
			channels.Delete(id)
			rec.ID = id + int16(d)
			moved = append(moved, &rec)
			continue
		}
		channels.Set(&rec)
	}
	for _, rec := range moved {
		channels.Set(rec)
	}
}
