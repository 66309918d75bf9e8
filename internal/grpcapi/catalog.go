// Package grpcapi exposes the quiz catalog over gRPC.
package grpcapi

import (
	"context"
	"errors"

	"github.com/ashureev/quizlabs/internal/quiz"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified name of the catalog service.
const ServiceName = "quizlabs.v1.Catalog"

const (
	listTitlesMethod   = "/" + ServiceName + "/ListTitles"
	describeQuizMethod = "/" + ServiceName + "/DescribeQuiz"
)

// CatalogSource provides the catalog currently used for new games.
type CatalogSource interface {
	Catalog() *quiz.Catalog
}

// CatalogServer is the server API for the catalog service.
type CatalogServer interface {
	ListTitles(ctx context.Context, in *emptypb.Empty) (*structpb.ListValue, error)
	DescribeQuiz(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error)
}

var catalogServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CatalogServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListTitles", Handler: listTitlesHandler},
		{MethodName: "DescribeQuiz", Handler: describeQuizHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "quizlabs/v1/catalog.proto",
}

// RegisterCatalogServer registers srv with s.
func RegisterCatalogServer(s grpc.ServiceRegistrar, srv CatalogServer) {
	s.RegisterService(&catalogServiceDesc, srv)
}

func listTitlesHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogServer).ListTitles(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listTitlesMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CatalogServer).ListTitles(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func describeQuizHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogServer).DescribeQuiz(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: describeQuizMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CatalogServer).DescribeQuiz(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

type catalogServer struct {
	source CatalogSource
}

// NewCatalogServer serves the catalog of source.
func NewCatalogServer(source CatalogSource) CatalogServer {
	return &catalogServer{source: source}
}

func (s *catalogServer) ListTitles(_ context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	titles := s.source.Catalog().Titles()
	values := make([]interface{}, len(titles))
	for i, t := range titles {
		values[i] = t
	}
	list, err := structpb.NewList(values)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode titles: %v", err)
	}
	return list, nil
}

func (s *catalogServer) DescribeQuiz(_ context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	if in.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "title is required")
	}

	q, err := s.source.Catalog().FindByTitle(in.GetValue())
	if errors.Is(err, quiz.ErrNotFound) {
		return nil, status.Error(codes.NotFound, err.Error())
	}
	if err != nil {
		return nil, status.Errorf(codes.Internal, "find quiz: %v", err)
	}

	questions := make([]interface{}, len(q.Questions))
	for i, question := range q.Questions {
		answers := make([]interface{}, len(question.Answers))
		for j, a := range question.Answers {
			answers[j] = a.Content
		}
		questions[i] = map[string]interface{}{
			"question": question.Prompt,
			"answers":  answers,
		}
	}

	out, err := structpb.NewStruct(map[string]interface{}{
		"title":     q.Title,
		"total":     len(q.Questions),
		"questions": questions,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode quiz: %v", err)
	}
	return out, nil
}

// CatalogClient calls the catalog service.
type CatalogClient struct {
	cc grpc.ClientConnInterface
}

// NewCatalogClient creates a client over cc.
func NewCatalogClient(cc grpc.ClientConnInterface) *CatalogClient {
	return &CatalogClient{cc: cc}
}

// ListTitles returns the quiz titles in catalog order.
func (c *CatalogClient) ListTitles(ctx context.Context, opts ...grpc.CallOption) ([]string, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, listTitlesMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(out.GetValues()))
	for _, v := range out.GetValues() {
		titles = append(titles, v.GetStringValue())
	}
	return titles, nil
}

// DescribeQuiz returns the public description of a quiz.
func (c *CatalogClient) DescribeQuiz(ctx context.Context, title string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, describeQuizMethod, wrapperspb.String(title), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
