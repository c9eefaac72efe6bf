package pipeline

// Stage names the step at which a tick was abandoned.
type Stage string

const (
	StageCapture   Stage = "capture"
	StageTransform Stage = "transform"
	StageEncode    Stage = "encode"
	StageSend      Stage = "send"
	StageStale     Stage = "stale"
	StageOverlap   Stage = "overlap"
)

// Observer is notified of tick outcomes. Calls may arrive concurrently and
// while a send is in progress; implementations must not call back into the
// Pipeline.
type Observer interface {
	TickStarted()
	TickSkipped(stage Stage, err error)
	FrameUnchanged()
	FrameEmitted(size int)
}

type nopObserver struct{}

func (nopObserver) TickStarted()             {}
func (nopObserver) TickSkipped(Stage, error) {}
func (nopObserver) FrameUnchanged()          {}
func (nopObserver) FrameEmitted(int)         {}
