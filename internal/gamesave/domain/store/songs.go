package store

import (
	"strconv"

	"LevelVault/internal/gamesave/domain/wire"
)

// 歌曲记录的键。
const (
	songKeyID       = "1"
	songKeyName     = "2"
	songKeyArtistID = "3"
	songKeyArtist   = "4"
	songKeySize     = "5"
	songKeyURL      = "10"
)

// Song 是 MDLM_001 里的一条自定义歌曲元数据。
type Song struct {
	ID       int
	Name     string
	ArtistID int
	Artist   string
	SizeMB   float64
	URL      string

	// extra 保留未登记的键。
	extra *wire.Dict
}

func songFromDict(d *wire.Dict) Song {
	s := Song{
		ID:       d.Int(songKeyID),
		Name:     d.Str(songKeyName),
		ArtistID: d.Int(songKeyArtistID),
		Artist:   d.Str(songKeyArtist),
		SizeMB:   d.Float(songKeySize),
		URL:      d.Str(songKeyURL),
		extra:    d.Clone(),
	}
	for _, k := range []string{songKeyID, songKeyName, songKeyArtistID, songKeyArtist, songKeySize, songKeyURL} {
		s.extra.Delete(k)
	}
	return s
}

func (s Song) dict() *wire.Dict {
	d := wire.NewDict()
	d.Set(songKeyID, wire.Int(s.ID))
	if s.Name != "" {
		d.Set(songKeyName, wire.String(s.Name))
	}
	if s.ArtistID != 0 {
		d.Set(songKeyArtistID, wire.Int(s.ArtistID))
	}
	if s.Artist != "" {
		d.Set(songKeyArtist, wire.String(s.Artist))
	}
	if s.SizeMB != 0 {
		d.Set(songKeySize, wire.Value{Kind: wire.KindReal, Text: strconv.FormatFloat(s.SizeMB, 'f', -1, 64)})
	}
	if s.URL != "" {
		d.Set(songKeyURL, wire.String(s.URL))
	}
	if s.extra != nil {
		for _, e := range s.extra.Entries() {
			d.Set(e.Key, e.Value.Clone())
		}
	}
	return d
}
