// Package server exposes extraction over gRPC and HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/po-extractor/constants"
	"github.com/joseph-ayodele/po-extractor/internal/common"
	"github.com/joseph-ayodele/po-extractor/internal/core"
	"github.com/joseph-ayodele/po-extractor/internal/entity"
	"github.com/joseph-ayodele/po-extractor/internal/extract"
)

// MaxUploadBytes caps a single uploaded document.
const MaxUploadBytes = 32 << 20

// Uploader is the processing entry point both transports call.
type Uploader interface {
	ProcessUpload(ctx context.Context, path, filename string, opts core.Options) (*entity.ExtractionResult, error)
}

// stageUpload copies r into a temp file carrying the original suffix. The
// returned cleanup func always removes it.
func stageUpload(r io.Reader, filename string) (string, func(), error) {
	suffix := filepath.Ext(filename)
	if constants.MapExtToFormat(suffix) == constants.UNKNOWN {
		return "", func() {}, &extract.UnsupportedFormatError{Suffix: suffix}
	}
	tmp, err := os.CreateTemp("", "po-upload-*"+strings.ToLower(suffix))
	if err != nil {
		return "", func() {}, err
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }

	n, err := io.Copy(tmp, io.LimitReader(r, MaxUploadBytes+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		cleanup()
		return "", func() {}, err
	}
	if n > MaxUploadBytes {
		cleanup()
		return "", func() {}, common.NewAppError("UPLOAD_TOO_LARGE", "document exceeds upload limit", common.ErrInvalidInput)
	}
	if n == 0 {
		cleanup()
		return "", func() {}, common.NewAppError("EMPTY_UPLOAD", "document is empty", common.ErrInvalidInput)
	}
	return tmp.Name(), cleanup, nil
}

// grpcError maps processing errors onto gRPC status codes.
func grpcError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrUnsupportedFormat):
		return common.InvalidArgumentError(err.Error())
	case errors.Is(err, common.ErrNotFound):
		return common.NotFoundError(err.Error())
	case errors.Is(err, common.ErrModelInvocation):
		return common.UnavailableError(err.Error())
	case errors.Is(err, common.ErrExtractionFailed):
		return common.FailedPreconditionError(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return common.InternalError(err.Error())
	}
}

// httpStatus maps processing errors onto an HTTP status and error code.
func httpStatus(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrUnsupportedFormat):
		return http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, common.ErrModelInvocation):
		return http.StatusBadGateway, "MODEL_INVOCATION_FAILED"
	case errors.Is(err, common.ErrExtractionFailed):
		return http.StatusUnprocessableEntity, "EXTRACTION_FAILED"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}
