package viewstream

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jwbonner/advantagescope/internal/field"
)

// ChunkSize is the number of frames per chunk file.
const ChunkSize = 1000

const recordingVersion = "1"

// RecordingHeader describes a recording on disk.
type RecordingHeader struct {
	Version   string    `json:"version"`
	Source    string    `json:"source"`
	Created   time.Time `json:"created"`
	Frames    uint64    `json:"frames"`
	ChunkSize int       `json:"chunkSize"`
}

// indexEntry locates one frame. Entries are written packed little-endian,
// 20 bytes each.
type indexEntry struct {
	Chunk  uint32
	Offset uint64
	Time   float64
}

// Recorder writes frames to a recording directory:
//
//	<base>/header.json        recording metadata, written on Close
//	<base>/index.bin          per-frame chunk/offset/time index
//	<base>/frames/chunk_NNNN.pb   length-prefixed wire frames
//
// Recorder implements FrameRecorder, so it can be attached to a Publisher
// directly.
type Recorder struct {
	mu       sync.Mutex
	basePath string
	source   string
	created  time.Time
	chunk    *os.File
	chunkIdx uint32
	chunkOff uint64
	index    []indexEntry
	frames   uint64
	closed   bool
}

// NewRecorder creates the recording directory and opens the first chunk.
func NewRecorder(basePath, source string) (*Recorder, error) {
	if err := os.MkdirAll(filepath.Join(basePath, "frames"), 0o755); err != nil {
		return nil, fmt.Errorf("create recording dir: %w", err)
	}

	r := &Recorder{
		basePath: basePath,
		source:   source,
		created:  time.Now().UTC(),
	}
	if err := r.openChunk(0); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Recorder) chunkPath(idx uint32) string {
	return filepath.Join(r.basePath, "frames", fmt.Sprintf("chunk_%04d.pb", idx))
}

func (r *Recorder) openChunk(idx uint32) error {
	f, err := os.Create(r.chunkPath(idx))
	if err != nil {
		return fmt.Errorf("create chunk %d: %w", idx, err)
	}
	r.chunk = f
	r.chunkIdx = idx
	r.chunkOff = 0
	return nil
}

// Record appends one frame to the recording.
func (r *Recorder) Record(frame *field.SceneFrame) error {
	if frame == nil {
		return fmt.Errorf("record nil frame")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return fmt.Errorf("recorder closed")
	}

	if idx := uint32(r.frames / ChunkSize); idx != r.chunkIdx {
		if err := r.chunk.Close(); err != nil {
			return fmt.Errorf("close chunk %d: %w", r.chunkIdx, err)
		}
		if err := r.openChunk(idx); err != nil {
			return err
		}
	}

	data := MarshalFrame(frame)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data)))
	if _, err := r.chunk.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("write frame length: %w", err)
	}
	if _, err := r.chunk.Write(data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}

	r.index = append(r.index, indexEntry{
		Chunk:  r.chunkIdx,
		Offset: r.chunkOff,
		Time:   frame.Time,
	})
	r.chunkOff += 4 + uint64(len(data))
	r.frames++
	return nil
}

// FrameCount returns the number of frames recorded so far.
func (r *Recorder) FrameCount() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Path returns the recording directory.
func (r *Recorder) Path() string {
	return r.basePath
}

// Close finishes the recording: the last chunk is flushed and the index and
// header are written. Close is idempotent.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if err := r.chunk.Close(); err != nil {
		return fmt.Errorf("close chunk %d: %w", r.chunkIdx, err)
	}

	var idx bytes.Buffer
	if err := binary.Write(&idx, binary.LittleEndian, r.index); err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(r.basePath, "index.bin"), idx.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}

	header := RecordingHeader{
		Version:   recordingVersion,
		Source:    r.source,
		Created:   r.created,
		Frames:    r.frames,
		ChunkSize: ChunkSize,
	}
	data, err := json.MarshalIndent(header, "", "  ")
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	if err := os.WriteFile(filepath.Join(r.basePath, "header.json"), data, 0o644); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

// Replayer reads frames back from a recording directory.
type Replayer struct {
	mu       sync.Mutex
	basePath string
	header   RecordingHeader
	index    []indexEntry
	chunk    *os.File
	chunkIdx uint32
	pos      uint64
}

// NewReplayer opens a recording for reading.
func NewReplayer(basePath string) (*Replayer, error) {
	data, err := os.ReadFile(filepath.Join(basePath, "header.json"))
	if err != nil {
		return nil, fmt.Errorf("read recording header: %w", err)
	}
	var header RecordingHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("decode recording header: %w", err)
	}

	raw, err := os.ReadFile(filepath.Join(basePath, "index.bin"))
	if err != nil {
		return nil, fmt.Errorf("read recording index: %w", err)
	}
	entrySize := binary.Size(indexEntry{})
	if len(raw) != int(header.Frames)*entrySize {
		return nil, fmt.Errorf("recording index is %d bytes, want %d for %d frames",
			len(raw), int(header.Frames)*entrySize, header.Frames)
	}
	index := make([]indexEntry, header.Frames)
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, index); err != nil {
		return nil, fmt.Errorf("decode recording index: %w", err)
	}

	return &Replayer{
		basePath: basePath,
		header:   header,
		index:    index,
	}, nil
}

// Header returns the recording metadata.
func (r *Replayer) Header() RecordingHeader {
	return r.header
}

// TotalFrames returns the number of frames in the recording.
func (r *Replayer) TotalFrames() uint64 {
	return uint64(len(r.index))
}

// CurrentFrame returns the index of the next frame ReadFrame will return.
func (r *Replayer) CurrentFrame() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pos
}

// Seek positions the replayer at a frame index.
func (r *Replayer) Seek(idx uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if idx >= uint64(len(r.index)) {
		return fmt.Errorf("frame %d out of range (total %d)", idx, len(r.index))
	}
	r.pos = idx
	return nil
}

// SeekToTime positions the replayer at the first frame at or after t.
// Times beyond the end clamp to the last frame.
func (r *Replayer) SeekToTime(t float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.index) == 0 {
		return fmt.Errorf("recording is empty")
	}
	i := sort.Search(len(r.index), func(i int) bool {
		return r.index[i].Time >= t
	})
	if i == len(r.index) {
		i = len(r.index) - 1
	}
	r.pos = uint64(i)
	return nil
}

// ReadFrame returns the frame at the current position and advances. It
// returns io.EOF past the end of the recording.
func (r *Replayer) ReadFrame() (*field.SceneFrame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pos >= uint64(len(r.index)) {
		return nil, io.EOF
	}
	entry := r.index[r.pos]

	if r.chunk == nil || r.chunkIdx != entry.Chunk {
		if r.chunk != nil {
			r.chunk.Close()
		}
		path := filepath.Join(r.basePath, "frames", fmt.Sprintf("chunk_%04d.pb", entry.Chunk))
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open chunk %d: %w", entry.Chunk, err)
		}
		r.chunk = f
		r.chunkIdx = entry.Chunk
	}

	var lenBuf [4]byte
	if _, err := r.chunk.ReadAt(lenBuf[:], int64(entry.Offset)); err != nil {
		return nil, fmt.Errorf("read frame length: %w", err)
	}
	data := make([]byte, binary.LittleEndian.Uint32(lenBuf[:]))
	if _, err := r.chunk.ReadAt(data, int64(entry.Offset)+4); err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}

	frame, err := UnmarshalFrame(data)
	if err != nil {
		return nil, fmt.Errorf("decode frame %d: %w", r.pos, err)
	}
	r.pos++
	return frame, nil
}

// Close releases the open chunk file, if any.
func (r *Replayer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.chunk != nil {
		err := r.chunk.Close()
		r.chunk = nil
		return err
	}
	return nil
}

// Play streams the recording from the current position through publish,
// pacing frames by their recorded timestamps divided by rate. A rate of 0
// plays unpaced. Play returns nil at the end of the recording.
func (r *Replayer) Play(ctx context.Context, rate float64, publish func(*field.SceneFrame)) error {
	var lastTime float64
	var lastWall time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frame, err := r.ReadFrame()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if !lastWall.IsZero() && rate > 0 {
			frameDelta := time.Duration((frame.Time - lastTime) / rate * float64(time.Second))
			wallDelta := time.Since(lastWall)
			if frameDelta > wallDelta {
				time.Sleep(frameDelta - wallDelta)
			}
		}
		lastTime = frame.Time
		lastWall = time.Now()

		publish(frame)
	}
}
