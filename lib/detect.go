package lib

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/mitroadmaps/gomapinfer/common"
)

// TrackResult is one frame of tracker output. Both fields are indexed by
// class; det rows are [x1, y1, x2, y2, score] and track rows are
// [id, x1, y1, x2, y2, score].
type TrackResult struct {
	DetBBoxes   [][][]float64 `json:"det_bboxes"`
	TrackBBoxes [][][]float64 `json:"track_bboxes"`
}

type Detection struct {
	Left    int     `json:"left"`
	Top     int     `json:"top"`
	Right   int     `json:"right"`
	Bottom  int     `json:"bottom"`
	Class   string  `json:"class"`
	Score   float64 `json:"score"`
	TrackID *int    `json:"track_id,omitempty"`
}

func (d Detection) Rectangle() common.Rectangle {
	return common.Rectangle{
		Min: common.Point{X: float64(d.Left), Y: float64(d.Top)},
		Max: common.Point{X: float64(d.Right), Y: float64(d.Bottom)},
	}
}

// Tracked flattens the track boxes of a result into detections carrying
// their track id. Rows shorter than six values are skipped.
func (r TrackResult) Tracked(classes []string) []Detection {
	var dlist []Detection
	for classIdx, rows := range r.TrackBBoxes {
		class := strconv.Itoa(classIdx)
		if classIdx < len(classes) {
			class = classes[classIdx]
		}
		for _, row := range rows {
			if len(row) < 6 {
				continue
			}
			id := int(row[0])
			dlist = append(dlist, Detection{
				Left:    int(row[1]),
				Top:     int(row[2]),
				Right:   int(row[3]),
				Bottom:  int(row[4]),
				Class:   class,
				Score:   row[5],
				TrackID: &id,
			})
		}
	}
	return dlist
}

type TrackDetection struct {
	Detection
	FrameIdx int
}

// Accumulator collects one entry per processed frame of a video.
type Accumulator struct {
	frames map[int][]TrackResult
}

func NewAccumulator() *Accumulator {
	return &Accumulator{frames: make(map[int][]TrackResult)}
}

func (acc *Accumulator) Add(frameIdx int, result TrackResult) {
	acc.frames[frameIdx] = append(acc.frames[frameIdx], result)
}

func (acc *Accumulator) Len() int {
	return len(acc.frames)
}

// WriteJSON dumps the accumulator as an object keyed by frame index.
func (acc *Accumulator) WriteJSON(fname string) error {
	if err := os.MkdirAll(filepath.Dir(fname), 0755); err != nil {
		return err
	}
	bytes, err := json.Marshal(acc.frames)
	if err != nil {
		return fmt.Errorf("marshal annotations: %w", err)
	}
	return os.WriteFile(fname, bytes, 0644)
}

// GetTracks groups the tracked boxes of every frame by track id, ordered by
// id, each track ordered by frame.
func (acc *Accumulator) GetTracks(classes []string) [][]TrackDetection {
	frameIdxs := make([]int, 0, len(acc.frames))
	for frameIdx := range acc.frames {
		frameIdxs = append(frameIdxs, frameIdx)
	}
	sort.Ints(frameIdxs)

	tracks := make(map[int][]TrackDetection)
	for _, frameIdx := range frameIdxs {
		for _, result := range acc.frames[frameIdx] {
			for _, d := range result.Tracked(classes) {
				tracks[*d.TrackID] = append(tracks[*d.TrackID], TrackDetection{
					Detection: d,
					FrameIdx:  frameIdx,
				})
			}
		}
	}
	ids := make([]int, 0, len(tracks))
	for id := range tracks {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	trackList := make([][]TrackDetection, 0, len(ids))
	for _, id := range ids {
		trackList = append(trackList, tracks[id])
	}
	return trackList
}

// TrackDisplacement is the distance between the box centers of the first and
// last detection of a track.
func TrackDisplacement(track []TrackDetection) float64 {
	if len(track) < 2 {
		return 0
	}
	start := track[0].Rectangle().Center()
	end := track[len(track)-1].Rectangle().Center()
	return start.Distance(end)
}
