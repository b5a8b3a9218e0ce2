package domain

// Progress statuses reported by extractor backends.
const (
	ProgressStatusDownloading = "downloading"
	ProgressStatusFinished    = "finished"
)

// Progress is one intermediate report from a backend. TotalBytes is zero when
// the backend cannot determine the total (streamed or merged formats). A
// "finished" report means the file is fully written, which is not the same as
// task success: post-processing may still fail afterwards.
type Progress struct {
	Status          string
	DownloadedBytes int64
	TotalBytes      int64
	Speed           int64
	ETASec          int
	Filename        string
}

// Percent computes floor(downloaded*100/total). It reports false when the
// total is unknown; callers must tolerate the absence.
func (p Progress) Percent() (int, bool) {
	if p.Status == ProgressStatusFinished {
		return 100, true
	}
	if p.TotalBytes <= 0 {
		return 0, false
	}
	return int(p.DownloadedBytes * 100 / p.TotalBytes), true
}
