// Package simserver exposes a running simulation over gRPC.
//
// The service is declared by hand over protobuf well-known types, so no
// generated code is involved:
//
//	Step(UInt64Value) UInt64Value     step n times (0 means 1), return completed steps
//	GetField(StringValue) Value       read one field
//	SetField(Struct) Empty            write writable fields, all or nothing
//	Snapshot(Empty) Struct            read every field
//	ListFields(Empty) Struct          map every field name to its kind tag
package simserver

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/signalsfoundry/psim/field"
	"github.com/signalsfoundry/psim/internal/logging"
	"github.com/signalsfoundry/psim/simulation"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "psim.v1.SimulationService"

// SimulationServiceServer is the server API of psim.v1.SimulationService.
type SimulationServiceServer interface {
	Step(context.Context, *wrapperspb.UInt64Value) (*wrapperspb.UInt64Value, error)
	GetField(context.Context, *wrapperspb.StringValue) (*structpb.Value, error)
	SetField(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	Snapshot(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListFields(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// Service implements SimulationServiceServer over a shared simulation.
type Service struct {
	sim *simulation.Shared
	log logging.Logger
}

// NewService serves sim.
func NewService(sim *simulation.Shared, log logging.Logger) *Service {
	if log == nil {
		log = logging.Noop()
	}
	return &Service{sim: sim, log: log}
}

func (s *Service) logger(ctx context.Context) logging.Logger {
	if l := logging.LoggerFromContext(ctx); l != nil {
		return l
	}
	return s.log
}

// Step advances the simulation req.Value times, once when zero.
func (s *Service) Step(ctx context.Context, req *wrapperspb.UInt64Value) (*wrapperspb.UInt64Value, error) {
	n := req.GetValue()
	if n == 0 {
		n = 1
	}
	var steps uint64
	err := s.sim.Do(func(sim *simulation.Simulation) error {
		for i := uint64(0); i < n; i++ {
			if err := sim.StepContext(ctx); err != nil {
				return err
			}
		}
		steps = sim.Steps()
		return nil
	})
	if err != nil {
		return nil, ToStatusError(err)
	}
	s.logger(ctx).Debug(ctx, "stepped", logging.Uint64("requested", n), logging.Uint64("steps", steps))
	return wrapperspb.UInt64(steps), nil
}

// GetField reads the field named req.Value.
func (s *Service) GetField(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Value, error) {
	var out *structpb.Value
	err := s.sim.Do(func(sim *simulation.Simulation) error {
		f, err := sim.Lookup(req.GetValue())
		if err != nil {
			return err
		}
		out, err = EncodeValue(f.Any())
		return err
	})
	if err != nil {
		return nil, ToStatusError(err)
	}
	return out, nil
}

// SetField writes every entry of req to the writable field of the same name.
// Every value is converted before any is written.
func (s *Service) SetField(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	err := s.sim.Do(func(sim *simulation.Simulation) error {
		type update struct {
			f field.WritableField
			v any
		}
		updates := make([]update, 0, len(req.GetFields()))
		for name, wire := range req.GetFields() {
			if _, err := sim.Lookup(name); err != nil {
				return err
			}
			w := sim.GetWritable(name)
			if w == nil {
				return fmt.Errorf("%w: %q", field.ErrNotWritable, name)
			}
			v, err := DecodeValue(w.ValueType(), wire)
			if err != nil {
				return fmt.Errorf("field %q: %w", name, err)
			}
			updates = append(updates, update{f: w, v: v})
		}
		for _, u := range updates {
			if err := u.f.SetAny(u.v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, ToStatusError(err)
	}
	s.logger(ctx).Info(ctx, "fields set", logging.Int("count", len(req.GetFields())))
	return &emptypb.Empty{}, nil
}

// Snapshot reads every registered field.
func (s *Service) Snapshot(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	out := &structpb.Struct{Fields: map[string]*structpb.Value{}}
	err := s.sim.Do(func(sim *simulation.Simulation) error {
		for _, name := range sim.Fields() {
			v, err := EncodeValue(sim.Get(name).Any())
			if err != nil {
				return fmt.Errorf("field %q: %w", name, err)
			}
			out.Fields[name] = v
		}
		return nil
	})
	if err != nil {
		return nil, ToStatusError(err)
	}
	return out, nil
}

// ListFields maps every registered field to its kind tag.
func (s *Service) ListFields(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	out := &structpb.Struct{Fields: map[string]*structpb.Value{}}
	_ = s.sim.Do(func(sim *simulation.Simulation) error {
		for _, name := range sim.Fields() {
			out.Fields[name] = structpb.NewStringValue(sim.Get(name).Type())
		}
		return nil
	})
	return out, nil
}

// RegisterSimulationServiceServer registers srv on r.
func RegisterSimulationServiceServer(r grpc.ServiceRegistrar, srv SimulationServiceServer) {
	r.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc describes psim.v1.SimulationService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SimulationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Step", Handler: _SimulationService_Step_Handler},
		{MethodName: "GetField", Handler: _SimulationService_GetField_Handler},
		{MethodName: "SetField", Handler: _SimulationService_SetField_Handler},
		{MethodName: "Snapshot", Handler: _SimulationService_Snapshot_Handler},
		{MethodName: "ListFields", Handler: _SimulationService_ListFields_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "psim/v1/simulation.proto",
}

func fullMethod(name string) string { return "/" + ServiceName + "/" + name }

func _SimulationService_Step_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.UInt64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SimulationServiceServer).Step(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: fullMethod("Step"),
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SimulationServiceServer).Step(ctx, req.(*wrapperspb.UInt64Value))
	}
	return interceptor(ctx, in, info, handler)
}

func _SimulationService_GetField_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SimulationServiceServer).GetField(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: fullMethod("GetField"),
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SimulationServiceServer).GetField(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _SimulationService_SetField_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SimulationServiceServer).SetField(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: fullMethod("SetField"),
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SimulationServiceServer).SetField(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _SimulationService_Snapshot_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SimulationServiceServer).Snapshot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: fullMethod("Snapshot"),
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SimulationServiceServer).Snapshot(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _SimulationService_ListFields_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SimulationServiceServer).ListFields(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: fullMethod("ListFields"),
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SimulationServiceServer).ListFields(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}
