package audit

import "io/fs"

// FileSystem provides the read-only filesystem operations required by audit groups.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	Stat(path string) (fs.FileInfo, error)
	WalkDir(root string, walkFunction fs.WalkDirFunc) error
}

// GroupEventObserver receives lifecycle notifications while groups execute.
type GroupEventObserver interface {
	GroupStarted(groupName string)
	GroupCompleted(groupName string, recordedResults int)
}

// Reporter renders an aggregated summary into its textual form and returns the score.
type Reporter interface {
	Render(summary Summary) (string, float64)
}
