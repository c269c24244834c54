package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/po-extractor/internal/common"
	"github.com/joseph-ayodele/po-extractor/internal/core"
	"github.com/joseph-ayodele/po-extractor/internal/entity"
)

const ExtractMethod = "/poextractor.v1.ExtractionService/Extract"

// ExtractionServer handles Extract calls. Requests and responses are
// google.protobuf.Struct values so no generated stubs are needed.
//
// Request fields: filename, content (base64), client_name, mapping_text,
// expected_items, strict. The response is the extraction result document.
type ExtractionServer interface {
	Extract(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var ExtractionServiceDesc = grpc.ServiceDesc{
	ServiceName: "poextractor.v1.ExtractionService",
	HandlerType: (*ExtractionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Extract", Handler: extractHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "poextractor/v1/extraction.proto",
}

func extractHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExtractionServer).Extract(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ExtractMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ExtractionServer).Extract(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func RegisterExtractionServer(s grpc.ServiceRegistrar, srv ExtractionServer) {
	s.RegisterService(&ExtractionServiceDesc, srv)
}

// ExtractionClient calls a remote ExtractionService.
type ExtractionClient struct {
	cc grpc.ClientConnInterface
}

func NewExtractionClient(cc grpc.ClientConnInterface) *ExtractionClient {
	return &ExtractionClient{cc: cc}
}

func (c *ExtractionClient) Extract(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ExtractMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

type ExtractionService struct {
	uploader Uploader
	logger   *slog.Logger
}

func NewExtractionService(uploader Uploader, logger *slog.Logger) *ExtractionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionService{uploader: uploader, logger: logger}
}

func (s *ExtractionService) Extract(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	start := time.Now()
	ctx, rid := common.EnsureRequestID(ctx)
	fields := req.GetFields()

	filename := strings.TrimSpace(fields["filename"].GetStringValue())
	if filename == "" {
		s.logger.Error("extract request missing filename", "req_id", rid)
		return nil, common.InvalidArgumentError("filename is required")
	}
	content, err := base64.StdEncoding.DecodeString(fields["content"].GetStringValue())
	if err != nil {
		return nil, common.InvalidArgumentErrorf("content must be base64: %v", err)
	}
	if len(content) == 0 {
		return nil, common.InvalidArgumentError("content is required")
	}

	opts := core.Options{
		ClientName:  strings.TrimSpace(fields["client_name"].GetStringValue()),
		MappingText: fields["mapping_text"].GetStringValue(),
		Strict:      fields["strict"].GetBoolValue(),
	}
	if v, ok := fields["expected_items"]; ok {
		if _, isNum := v.GetKind().(*structpb.Value_NumberValue); isNum {
			n := int(v.GetNumberValue())
			if n < 0 {
				return nil, common.InvalidArgumentError("expected_items must not be negative")
			}
			opts.ExpectedItems = &n
		}
	}

	path, cleanup, err := stageUpload(bytes.NewReader(content), filename)
	defer cleanup()
	if err != nil {
		return nil, grpcError(err)
	}

	s.logger.Info("grpc.extract.start", "req_id", rid, "filename", filename, "bytes", len(content))
	res, err := s.uploader.ProcessUpload(ctx, path, filename, opts)
	if err != nil {
		s.logger.Error("grpc.extract.failed", "req_id", rid, "filename", filename, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, grpcError(err)
	}

	out, err := resultStruct(res)
	if err != nil {
		return nil, common.InternalErrorf("encode result: %v", err)
	}
	s.logger.Info("grpc.extract.ok", "req_id", rid, "filename", filename, "needs_review", res.NeedsReview,
		"elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

func resultStruct(res *entity.ExtractionResult) (*structpb.Struct, error) {
	b, err := json.Marshal(res)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}
