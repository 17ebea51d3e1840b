package camera

import (
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/victorakor/mall-surveillance-system/internal/errors"
)

// maxFrameSize caps a single JPEG read from a camera source.
const maxFrameSize = 8 << 20

// Source yields JPEG frames from a camera. Implementations are used by a
// single worker goroutine and need not be safe for concurrent use.
type Source interface {
	// NextFrame blocks until a frame is available or the context is done.
	NextFrame(ctx context.Context) ([]byte, error)
	Close() error
}

// httpSource reads frames from an HTTP camera endpoint. It handles both
// MJPEG streams (multipart/x-mixed-replace) and plain snapshot URLs that
// return a single JPEG per request.
type httpSource struct {
	url    string
	client *http.Client

	// stream state, populated on the first read of an MJPEG source
	body   io.ReadCloser
	reader *multipart.Reader
}

// NewHTTPSource creates a source for the given camera URL.
func NewHTTPSource(url string) Source {
	return &httpSource{
		url: url,
		client: &http.Client{
			// connect and header timeout only, MJPEG bodies stream forever
			Transport: &http.Transport{
				ResponseHeaderTimeout: 10 * time.Second,
			},
		},
	}
}

func (s *httpSource) NextFrame(ctx context.Context) ([]byte, error) {
	if s.reader != nil {
		return s.readPart(ctx)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return nil, errors.New(err).
			Component("camera").
			Category(errors.CategoryCameraSource).
			Context("url", s.url).
			Build()
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.New(err).
			Component("camera").
			Category(errors.CategoryCameraSource).
			Context("url", s.url).
			Build()
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.Newf("camera source returned status %d", resp.StatusCode).
			Component("camera").
			Category(errors.CategoryCameraSource).
			Context("url", s.url).
			Build()
	}

	mediaType, params, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			resp.Body.Close()
			return nil, errors.Newf("camera stream missing multipart boundary").
				Component("camera").
				Category(errors.CategoryCameraSource).
				Context("url", s.url).
				Build()
		}
		s.body = resp.Body
		s.reader = multipart.NewReader(resp.Body, boundary)
		return s.readPart(ctx)
	}

	// snapshot endpoint, one JPEG per request
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFrameSize))
	if err != nil {
		return nil, errors.New(err).
			Component("camera").
			Category(errors.CategoryCameraSource).
			Context("url", s.url).
			Build()
	}
	return data, nil
}

// readPart reads the next JPEG part of an open MJPEG stream. On any error the
// stream is torn down so the next call reconnects.
func (s *httpSource) readPart(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		s.Close()
		return nil, err
	}

	part, err := s.reader.NextPart()
	if err != nil {
		s.Close()
		return nil, errors.New(err).
			Component("camera").
			Category(errors.CategoryCameraSource).
			Context("url", s.url).
			Context("operation", "next-part").
			Build()
	}
	defer part.Close()

	data, err := io.ReadAll(io.LimitReader(part, maxFrameSize))
	if err != nil {
		s.Close()
		return nil, errors.New(err).
			Component("camera").
			Category(errors.CategoryCameraSource).
			Context("url", s.url).
			Context("operation", "read-part").
			Build()
	}
	return data, nil
}

func (s *httpSource) Close() error {
	s.reader = nil
	if s.body != nil {
		err := s.body.Close()
		s.body = nil
		return err
	}
	return nil
}
