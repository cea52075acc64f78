// Package encoder owns the output video container. Frames are appended one
// at a time and the file only becomes a readable artifact after Close.
package encoder

import (
	"fmt"
	"image"
	"io"
	"os"
	"strconv"

	"github.com/rmeijer/screenrec/internal/constants"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Encoder appends raw frames to an output container at a fixed frame rate.
// Append and Close are called only from the recording loop goroutine.
type Encoder interface {
	Append(frame *image.RGBA) error
	Close() error
}

// Opener creates an Encoder writing to path with fixed dimensions and rate.
type Opener func(path string, width, height, fps int) (Encoder, error)

// ffmpegEncoder streams raw RGBA frames through a pipe into an FFmpeg
// process producing an H.264 MP4. While encoding, output lives at the
// in-progress path; Close waits for FFmpeg to finalize the container and
// renames it to the final path.
type ffmpegEncoder struct {
	pw        *io.PipeWriter
	done      chan error
	frameLen  int
	width     int
	height    int
	finalPath string
	workPath  string
	closed    bool
}

// Open starts the FFmpeg job for one recording session. The codec and
// container choice is fixed here and nowhere else.
func Open(path string, width, height, fps int) (Encoder, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("invalid output dimensions %dx%d", width, height)
	}

	workPath := path + constants.InProgressExt
	pr, pw := io.Pipe()

	job := ffmpeg.Input("pipe:0", ffmpeg.KwArgs{
		"format":     "rawvideo",
		"pix_fmt":    "rgba",
		"video_size": fmt.Sprintf("%dx%d", width, height),
		"framerate":  strconv.Itoa(fps),
	}).Output(workPath, ffmpeg.KwArgs{
		"c:v":     "libx264",
		"preset":  "veryfast",
		"pix_fmt": "yuv420p",
		// libx264 with yuv420p needs even dimensions; odd crops get one
		// pixel shaved rather than failing the whole session.
		"vf":       "scale=trunc(iw/2)*2:trunc(ih/2)*2",
		"r":        strconv.Itoa(fps),
		"movflags": "+faststart",
		"f":        "mp4",
	}).OverWriteOutput().Silent(true).WithInput(pr)

	done := make(chan error, 1)
	go func() {
		err := job.Run()
		// Closing the read side unblocks a writer stuck in Append after
		// ffmpeg exits mid-stream; the write error carries the job error.
		_ = pr.CloseWithError(err)
		done <- err
	}()

	return &ffmpegEncoder{
		pw:        pw,
		done:      done,
		frameLen:  width * height * 4,
		width:     width,
		height:    height,
		finalPath: path,
		workPath:  workPath,
	}, nil
}

// Append writes one frame into the FFmpeg pipe. The frame must match the
// dimensions the encoder was opened with.
func (e *ffmpegEncoder) Append(frame *image.RGBA) error {
	if e.closed {
		return fmt.Errorf("append after close")
	}

	b := frame.Bounds()
	if b.Dx() != e.width || b.Dy() != e.height {
		return fmt.Errorf("frame is %dx%d, encoder expects %dx%d", b.Dx(), b.Dy(), e.width, e.height)
	}

	// Tightly packed frames go out in one write; padded strides row by row.
	if len(frame.Pix) == e.frameLen && b.Min == (image.Point{}) {
		if _, err := e.pw.Write(frame.Pix); err != nil {
			return fmt.Errorf("write frame: %w", err)
		}
		return nil
	}

	rowLen := e.width * 4
	for y := b.Min.Y; y < b.Max.Y; y++ {
		offset := frame.PixOffset(b.Min.X, y)
		if _, err := e.pw.Write(frame.Pix[offset : offset+rowLen]); err != nil {
			return fmt.Errorf("write frame row: %w", err)
		}
	}
	return nil
}

// Close flushes the pipe, waits for FFmpeg to finalize the container, and
// renames the output to its final name. Finalize is attempted even after a
// mid-stream failure so a partial recording survives.
func (e *ffmpegEncoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	_ = e.pw.Close()
	encodeErr := <-e.done

	if _, err := os.Stat(e.workPath); err != nil {
		if encodeErr != nil {
			return fmt.Errorf("encode failed: %w", encodeErr)
		}
		return fmt.Errorf("output missing after encode: %w", err)
	}

	if err := os.Rename(e.workPath, e.finalPath); err != nil {
		return fmt.Errorf("finalize rename: %w", err)
	}

	if encodeErr != nil {
		return fmt.Errorf("encode failed: %w", encodeErr)
	}
	return nil
}
