package grpc

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"campusevents/internal/logger"
	"campusevents/internal/operations"
)

const (
	eventQueryServiceName       = "campusevents.v1.EventQueryService"
	getEventAnalyticsFullMethod = "/" + eventQueryServiceName + "/GetEventAnalytics"

	// QueryTokenHeader carries the shared secret of a calling service.
	QueryTokenHeader = "x-campus-events-token"
	// QueryCallerHeader optionally names the calling service for logs.
	QueryCallerHeader = "x-campus-events-caller"
)

var queryCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "campus_events_grpc_query_calls_total",
	Help: "Event query RPCs by method and status code.",
}, []string{"method", "code"})

// EventQueryServiceServer answers read-only questions about events for other
// services. Messages are protobuf well-known types so no generated code is
// needed on either side.
type EventQueryServiceServer interface {
	GetEventAnalytics(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

var EventQueryServiceDesc = grpc.ServiceDesc{
	ServiceName: eventQueryServiceName,
	HandlerType: (*EventQueryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetEventAnalytics",
			Handler:    getEventAnalyticsHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "campusevents/v1/event_query.proto",
}

func RegisterEventQueryServiceServer(registrar grpc.ServiceRegistrar, srv EventQueryServiceServer) {
	registrar.RegisterService(&EventQueryServiceDesc, srv)
}

func getEventAnalyticsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EventQueryServiceServer).GetEventAnalytics(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: getEventAnalyticsFullMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(EventQueryServiceServer).GetEventAnalytics(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

type EventQueryClient struct {
	cc grpc.ClientConnInterface
}

func NewEventQueryClient(cc grpc.ClientConnInterface) *EventQueryClient {
	return &EventQueryClient{cc: cc}
}

func (c *EventQueryClient) GetEventAnalytics(ctx context.Context, eventID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getEventAnalyticsFullMethod, wrapperspb.String(eventID), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

type AnalyticsSource interface {
	LookupEventAnalytics(ctx context.Context, eventID string) (operations.Analytics, error)
}

type EventQueryServer struct {
	analytics AnalyticsSource
	log       *zap.Logger
}

func NewEventQueryServer(analytics AnalyticsSource, log *zap.Logger) *EventQueryServer {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventQueryServer{analytics: analytics, log: log}
}

func (s *EventQueryServer) GetEventAnalytics(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	eventID := strings.TrimSpace(req.GetValue())
	if eventID == "" {
		return nil, status.Error(codes.InvalidArgument, "event_id required")
	}

	analytics, err := s.analytics.LookupEventAnalytics(ctx, eventID)
	if err != nil {
		opErr := operations.AsError(err)
		switch opErr.Kind {
		case operations.KindNotFound:
			return nil, status.Error(codes.NotFound, opErr.Code)
		case operations.KindValidation:
			return nil, status.Error(codes.InvalidArgument, opErr.Code)
		}
		s.log.Error("event analytics lookup failed", zap.String(logger.FieldEventID, eventID), zap.Error(err))
		return nil, status.Error(codes.Internal, "analytics lookup failed")
	}

	out, err := structpb.NewStruct(map[string]interface{}{
		"eventId":              eventID,
		"totalRegistrations":   analytics.TotalRegistrations,
		"present":              analytics.Present,
		"absent":               analytics.Absent,
		"late":                 analytics.Late,
		"excused":              analytics.Excused,
		"pending":              analytics.Pending,
		"feedbackCount":        analytics.FeedbackCount,
		"averageRating":        analytics.AverageRating,
		"attendancePercentage": analytics.AttendancePercentage,
		"noShowPercentage":     analytics.NoShowPercentage,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, "analytics encoding failed")
	}
	return out, nil
}

// NewQueryGuard admits calls to the event query service that present token,
// either in QueryTokenHeader or as a bearer authorization. Calls to methods
// outside the service are refused. Every outcome is counted and rejections
// are logged with the caller's name when it sends one.
func NewQueryGuard(token string, log *zap.Logger) (grpc.UnaryServerInterceptor, error) {
	if token == "" {
		return nil, errors.New("query token required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		presented, caller := queryCredentials(ctx)
		var err error
		switch {
		case !strings.HasPrefix(info.FullMethod, "/"+eventQueryServiceName+"/"):
			err = status.Error(codes.PermissionDenied, "unknown_query_method")
		case presented == "":
			err = status.Error(codes.Unauthenticated, "missing_query_token")
		case subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1:
			err = status.Error(codes.PermissionDenied, "invalid_query_token")
		}
		if err != nil {
			queryCallsTotal.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
			log.Warn("event query rejected",
				zap.String(logger.FieldMethod, info.FullMethod),
				zap.String("caller", caller),
				zap.Error(err),
			)
			return nil, err
		}

		resp, err := handler(ctx, req)
		queryCallsTotal.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
		return resp, err
	}, nil
}

// WithQueryToken attaches the caller's token and name to outgoing queries
// made with ctx.
func WithQueryToken(ctx context.Context, token, caller string) context.Context {
	pairs := []string{QueryTokenHeader, token}
	if caller != "" {
		pairs = append(pairs, QueryCallerHeader, caller)
	}
	return metadata.AppendToOutgoingContext(ctx, pairs...)
}

func queryCredentials(ctx context.Context) (token, caller string) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", ""
	}
	if values := md.Get(QueryCallerHeader); len(values) > 0 {
		caller = strings.TrimSpace(values[0])
	}
	if values := md.Get(QueryTokenHeader); len(values) > 0 {
		return strings.TrimSpace(values[0]), caller
	}
	if values := md.Get("authorization"); len(values) > 0 {
		scheme, value, found := strings.Cut(strings.TrimSpace(values[0]), " ")
		if found && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(value), caller
		}
	}
	return "", caller
}
