package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/stockwatch/stockwatch/internal/common"
)

const alarmServiceName = "inventory.v1.AlarmService"

// AlarmServiceServer carries the alarm operations as google.protobuf.Struct messages whose
// shapes match the REST bodies.
type AlarmServiceServer interface {
	CheckAlarm(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ConfirmBaseline(context.Context, *structpb.Struct) (*structpb.Struct, error)
	BulkConfirm(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListAlarms(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var AlarmServiceDesc = grpc.ServiceDesc{
	ServiceName: alarmServiceName,
	HandlerType: (*AlarmServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("CheckAlarm", AlarmServiceServer.CheckAlarm),
		unaryMethod("ConfirmBaseline", AlarmServiceServer.ConfirmBaseline),
		unaryMethod("BulkConfirm", AlarmServiceServer.BulkConfirm),
		unaryMethod("ListAlarms", AlarmServiceServer.ListAlarms),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "inventory/v1/alarm.proto",
}

func RegisterAlarmServiceServer(s grpc.ServiceRegistrar, srv AlarmServiceServer) {
	s.RegisterService(&AlarmServiceDesc, srv)
}

type structCall func(AlarmServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(name string, call structCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(AlarmServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + alarmServiceName + "/" + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(AlarmServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// AlarmService serves AlarmServiceServer over the shared API.
type AlarmService struct {
	api    *API
	logger *slog.Logger
}

func NewAlarmService(svcs *Services, logger *slog.Logger) *AlarmService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlarmService{api: NewAPI(svcs, logger), logger: logger}
}

func (s *AlarmService) CheckAlarm(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req CheckRequest
	if err := decodeStruct("check", in, &req); err != nil {
		return nil, common.GRPCError(err)
	}
	res, err := s.api.CheckAlarm(ctx, req)
	return s.reply("CheckAlarm", res, err)
}

func (s *AlarmService) ConfirmBaseline(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ConfirmRequest
	if err := decodeStruct("confirm", in, &req); err != nil {
		return nil, common.GRPCError(err)
	}
	res, err := s.api.ConfirmBaseline(ctx, req)
	return s.reply("ConfirmBaseline", res, err)
}

func (s *AlarmService) BulkConfirm(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req BulkConfirmRequest
	if err := decodeStruct("bulk-confirm", in, &req); err != nil {
		return nil, common.GRPCError(err)
	}
	res, err := s.api.BulkConfirm(ctx, req)
	return s.reply("BulkConfirm", res, err)
}

// ListAlarms answers {"rows": [...]}.
func (s *AlarmService) ListAlarms(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ListAlarmsRequest
	if err := decodeStruct("list-alarms", in, &req); err != nil {
		return nil, common.GRPCError(err)
	}
	rows, err := s.api.ListAlarms(ctx, req)
	if err != nil {
		return s.reply("ListAlarms", nil, err)
	}
	return s.reply("ListAlarms", map[string]any{"rows": rows}, nil)
}

func (s *AlarmService) reply(method string, v any, err error) (*structpb.Struct, error) {
	if err != nil {
		s.logger.Warn("grpc.alarm.failed", "method", method, "error", err)
		return nil, common.GRPCError(err)
	}
	out, err := toStruct(v)
	if err != nil {
		s.logger.Error("grpc.alarm.encode_failed", "method", method, "error", err)
		return nil, common.InternalError("encode response")
	}
	return out, nil
}

func decodeStruct(schema string, in *structpb.Struct, dst any) error {
	body, err := protojson.Marshal(in)
	if err != nil {
		return common.InvalidInput("malformed request struct")
	}
	return decodeRequest(schema, body, dst)
}

func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, err
	}
	return out, nil
}

// LoggingInterceptor logs each unary call with its duration.
func LoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("grpc.request",
			"method", info.FullMethod,
			"ok", err == nil,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return resp, err
	}
}

// AlarmClient calls AlarmService over any client connection.
type AlarmClient struct {
	cc grpc.ClientConnInterface
}

func NewAlarmClient(cc grpc.ClientConnInterface) *AlarmClient {
	return &AlarmClient{cc: cc}
}

func (c *AlarmClient) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+alarmServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
