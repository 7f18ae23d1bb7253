package viewstream

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"google.golang.org/grpc"

	"github.com/jwbonner/advantagescope/internal/applog"
	"github.com/jwbonner/advantagescope/internal/field"
)

// FrameRecorder receives every frame accepted for broadcast. Recording runs
// on the broadcast goroutine, never on the caller of Publish.
type FrameRecorder interface {
	Record(frame *field.SceneFrame) error
}

// Config holds configuration for the frame stream server.
type Config struct {
	// ListenAddr is the address to listen on (e.g. "localhost:50061").
	ListenAddr string

	// MaxClients caps concurrent streaming clients. Subscriptions beyond
	// the cap are refused.
	MaxClients int

	// Log is the publisher logger. Nil selects the process default.
	Log *applog.Logger
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		ListenAddr: "localhost:50061",
		MaxClients: 5,
	}
}

// Publisher fans rendered frames out to streaming clients over gRPC. The
// render loop hands frames to Publish, which never blocks on slow consumers:
// frames queue on a buffered channel and drop when the queue or a client
// buffer is full.
type Publisher struct {
	config   Config
	log      *applog.Logger
	server   *grpc.Server
	listener net.Listener

	frameChan chan *field.SceneFrame
	clients   map[string]*clientStream
	clientsMu sync.RWMutex

	recorder   FrameRecorder
	recorderMu sync.RWMutex

	frameCount    atomic.Uint64
	clientCount   atomic.Int32
	droppedFrames atomic.Uint64

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// clientStream is one connected subscriber.
type clientStream struct {
	id      string
	frameCh chan *field.SceneFrame
	doneCh  chan struct{}
}

// NewPublisher creates a publisher with the given configuration.
func NewPublisher(cfg Config) *Publisher {
	log := cfg.Log
	if log == nil {
		log = applog.Default()
	}
	return &Publisher{
		config:    cfg,
		log:       log,
		frameChan: make(chan *field.SceneFrame, 100),
		clients:   make(map[string]*clientStream),
		stopCh:    make(chan struct{}),
	}
}

// Start binds the listen address and serves the frame stream.
func (p *Publisher) Start() error {
	if p.running.Load() {
		return fmt.Errorf("publisher already running")
	}

	lis, err := net.Listen("tcp", p.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", p.config.ListenAddr, err)
	}
	p.listener = lis

	// Frames carrying long trails and dense heatmaps outgrow the default
	// 4MB message ceiling.
	const maxMsgSize = 16 * 1024 * 1024
	p.server = grpc.NewServer(
		grpc.ForceServerCodec(frameCodec{}),
		grpc.MaxRecvMsgSize(maxMsgSize),
		grpc.MaxSendMsgSize(maxMsgSize),
	)
	p.server.RegisterService(&streamServiceDesc, newStreamServer(p))

	p.running.Store(true)

	p.wg.Add(1)
	go p.broadcastLoop()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.log.Infof("frame stream listening on %s", lis.Addr())
		if err := p.server.Serve(lis); err != nil && p.running.Load() {
			p.log.Errorf("frame stream server: %v", err)
		}
	}()

	return nil
}

// Stop gracefully stops the server. Active subscriptions end before the
// call returns.
func (p *Publisher) Stop() {
	if !p.running.Load() {
		return
	}
	p.running.Store(false)
	close(p.stopCh)

	if p.server != nil {
		p.server.GracefulStop()
	}
	if p.listener != nil {
		p.listener.Close()
	}

	p.wg.Wait()
	p.log.Infof("frame stream stopped")
}

// Addr returns the bound listen address, or nil before Start.
func (p *Publisher) Addr() net.Addr {
	if p.listener == nil {
		return nil
	}
	return p.listener.Addr()
}

// Publish queues a frame for broadcast. Frames drop rather than block when
// the queue is full.
func (p *Publisher) Publish(frame *field.SceneFrame) {
	if frame == nil || !p.running.Load() {
		return
	}

	select {
	case p.frameChan <- frame:
		p.frameCount.Add(1)
	default:
		dropped := p.droppedFrames.Add(1)
		p.log.Warnf("frame %d dropped, queue full (total dropped: %d)", frame.Seq, dropped)
	}
}

// SetRecorder attaches a recorder; every subsequently broadcast frame is
// handed to it.
func (p *Publisher) SetRecorder(rec FrameRecorder) {
	p.recorderMu.Lock()
	p.recorder = rec
	p.recorderMu.Unlock()
}

// ClearRecorder detaches the current recorder.
func (p *Publisher) ClearRecorder() {
	p.recorderMu.Lock()
	p.recorder = nil
	p.recorderMu.Unlock()
}

// broadcastLoop distributes frames to connected clients and the recorder.
func (p *Publisher) broadcastLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case frame := <-p.frameChan:
			p.clientsMu.RLock()
			for _, client := range p.clients {
				select {
				case client.frameCh <- frame:
				default:
					// Client is slow; skip this frame for it.
					p.droppedFrames.Add(1)
				}
			}
			p.clientsMu.RUnlock()

			p.recorderMu.RLock()
			rec := p.recorder
			p.recorderMu.RUnlock()
			if rec != nil {
				if err := rec.Record(frame); err != nil {
					p.log.Errorf("record frame %d: %v", frame.Seq, err)
				}
			}
		}
	}
}

// addClient registers a subscriber. It returns nil when the client cap is
// reached.
func (p *Publisher) addClient(id string) *clientStream {
	client := &clientStream{
		id:      id,
		frameCh: make(chan *field.SceneFrame, 10),
		doneCh:  make(chan struct{}),
	}

	p.clientsMu.Lock()
	if p.config.MaxClients > 0 && len(p.clients) >= p.config.MaxClients {
		p.clientsMu.Unlock()
		return nil
	}
	p.clients[id] = client
	p.clientsMu.Unlock()

	p.clientCount.Add(1)
	p.log.Infof("stream client connected: %s (total: %d)", id, p.clientCount.Load())
	return client
}

// removeClient unregisters a subscriber. Unknown ids are ignored.
func (p *Publisher) removeClient(id string) {
	p.clientsMu.Lock()
	client, ok := p.clients[id]
	if ok {
		close(client.doneCh)
		delete(p.clients, id)
	}
	p.clientsMu.Unlock()

	if ok {
		p.clientCount.Add(-1)
		p.log.Infof("stream client disconnected: %s (remaining: %d)", id, p.clientCount.Load())
	}
}

// Stats returns current publisher statistics.
func (p *Publisher) Stats() PublisherStats {
	return PublisherStats{
		FrameCount:    p.frameCount.Load(),
		ClientCount:   p.clientCount.Load(),
		DroppedFrames: p.droppedFrames.Load(),
		Running:       p.running.Load(),
	}
}

// PublisherStats contains publisher statistics.
type PublisherStats struct {
	FrameCount    uint64
	ClientCount   int32
	DroppedFrames uint64
	Running       bool
}
