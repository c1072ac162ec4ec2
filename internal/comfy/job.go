package comfy

import (
	"context"
	"sync"

	"github.com/easel-dev/easel/internal/pubsub"
)

// Progress is one progress tick for an executing job.
type Progress struct {
	Value int
	Max   int
	Node  string // name of the currently executing node, when known
}

// ImageRef identifies one produced image on the backend.
type ImageRef struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

// Outputs maps an output node name to the images it produced.
type Outputs map[string][]ImageRef

// Job is the handle for one in-flight prompt. The websocket reader feeds
// its progress and preview streams; Done is closed once the backend
// reports execution finished, after which Outputs returns the collected
// results.
type Job struct {
	id       string
	number   int
	progress *pubsub.Broker[Progress]
	preview  *pubsub.Broker[[]byte]

	mu       sync.Mutex
	done     chan struct{}
	finished bool
	outputs  Outputs
	err      error
}

func newJob(id string, number int) *Job {
	return &Job{
		id:       id,
		number:   number,
		progress: pubsub.NewBroker[Progress](),
		preview:  pubsub.NewBroker[[]byte](),
		done:     make(chan struct{}),
		outputs:  make(Outputs),
	}
}

// ID returns the backend prompt identifier.
func (j *Job) ID() string {
	return j.id
}

// Number returns the queue position assigned at submission.
func (j *Job) Number() int {
	return j.number
}

// Progress subscribes to progress ticks. The channel closes when ctx is
// cancelled or the job finishes.
func (j *Job) Progress(ctx context.Context) <-chan pubsub.Event[Progress] {
	return j.progress.Subscribe(ctx)
}

// Previews subscribes to preview frames (encoded image bytes). The channel
// closes when ctx is cancelled or the job finishes.
func (j *Job) Previews(ctx context.Context) <-chan pubsub.Event[[]byte] {
	return j.preview.Subscribe(ctx)
}

// Done returns a channel closed when the job finishes, successfully or not.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Outputs returns the collected results and the terminal error, if any.
// Only meaningful after Done is closed.
func (j *Job) Outputs() (Outputs, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.outputs, j.err
}

func (j *Job) publishProgress(p Progress) {
	j.progress.Publish(p)
}

func (j *Job) publishPreview(frame []byte) {
	j.preview.Publish(frame)
}

// addOutput merges one executed node's images into the job results.
func (j *Job) addOutput(node string, images []ImageRef) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.finished {
		return
	}
	j.outputs[node] = append(j.outputs[node], images...)
}

// complete marks the job finished. Only the first call has any effect.
func (j *Job) complete(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.finished {
		return
	}
	j.finished = true
	j.err = err
	close(j.done)
	j.progress.Close()
	j.preview.Close()
}
