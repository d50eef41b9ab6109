package physics

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName - полное имя gRPC сервиса физического сервера
const ServiceName = "physics.Physics"

// Имена методов сервиса
const (
	MethodCreateBody                  = "CreateBody"
	MethodRemoveBody                  = "RemoveBody"
	MethodApplyImpulse                = "ApplyImpulse"
	MethodApplyTorqueImpulse          = "ApplyTorqueImpulse"
	MethodTranslation                 = "Translation"
	MethodBodyState                   = "BodyState"
	MethodSetTranslation              = "SetTranslation"
	MethodSetLinvel                   = "SetLinvel"
	MethodSetAngvel                   = "SetAngvel"
	MethodSetNextKinematicTranslation = "SetNextKinematicTranslation"
	MethodSetNextKinematicRotation    = "SetNextKinematicRotation"
	MethodCastRay                     = "CastRay"
	MethodStep                        = "Step"
)

// PhysicsServer - серверная сторона протокола (реализуется физическим движком)
type PhysicsServer interface {
	CreateBody(context.Context, *CreateBodyRequest) (*StatusResponse, error)
	RemoveBody(context.Context, *BodyRequest) (*StatusResponse, error)
	ApplyImpulse(context.Context, *VectorRequest) (*StatusResponse, error)
	ApplyTorqueImpulse(context.Context, *VectorRequest) (*StatusResponse, error)
	Translation(context.Context, *BodyRequest) (*TranslationResponse, error)
	BodyState(context.Context, *BodyRequest) (*BodyStateResponse, error)
	SetTranslation(context.Context, *VectorRequest) (*StatusResponse, error)
	SetLinvel(context.Context, *VectorRequest) (*StatusResponse, error)
	SetAngvel(context.Context, *VectorRequest) (*StatusResponse, error)
	SetNextKinematicTranslation(context.Context, *VectorRequest) (*StatusResponse, error)
	SetNextKinematicRotation(context.Context, *RotationRequest) (*StatusResponse, error)
	CastRay(context.Context, *CastRayRequest) (*CastRayResponse, error)
	Step(context.Context, *StepRequest) (*StatusResponse, error)
}

// FullMethod возвращает путь метода для conn.Invoke
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unaryHandler[Req any, Resp any](method string, call func(PhysicsServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(PhysicsServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: FullMethod(method),
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(PhysicsServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc описывает сервис для grpc.Server.RegisterService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PhysicsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodCreateBody, Handler: unaryHandler(MethodCreateBody, PhysicsServer.CreateBody)},
		{MethodName: MethodRemoveBody, Handler: unaryHandler(MethodRemoveBody, PhysicsServer.RemoveBody)},
		{MethodName: MethodApplyImpulse, Handler: unaryHandler(MethodApplyImpulse, PhysicsServer.ApplyImpulse)},
		{MethodName: MethodApplyTorqueImpulse, Handler: unaryHandler(MethodApplyTorqueImpulse, PhysicsServer.ApplyTorqueImpulse)},
		{MethodName: MethodTranslation, Handler: unaryHandler(MethodTranslation, PhysicsServer.Translation)},
		{MethodName: MethodBodyState, Handler: unaryHandler(MethodBodyState, PhysicsServer.BodyState)},
		{MethodName: MethodSetTranslation, Handler: unaryHandler(MethodSetTranslation, PhysicsServer.SetTranslation)},
		{MethodName: MethodSetLinvel, Handler: unaryHandler(MethodSetLinvel, PhysicsServer.SetLinvel)},
		{MethodName: MethodSetAngvel, Handler: unaryHandler(MethodSetAngvel, PhysicsServer.SetAngvel)},
		{MethodName: MethodSetNextKinematicTranslation, Handler: unaryHandler(MethodSetNextKinematicTranslation, PhysicsServer.SetNextKinematicTranslation)},
		{MethodName: MethodSetNextKinematicRotation, Handler: unaryHandler(MethodSetNextKinematicRotation, PhysicsServer.SetNextKinematicRotation)},
		{MethodName: MethodCastRay, Handler: unaryHandler(MethodCastRay, PhysicsServer.CastRay)},
		{MethodName: MethodStep, Handler: unaryHandler(MethodStep, PhysicsServer.Step)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "physics.msgpack",
}

// RegisterPhysicsServer регистрирует реализацию сервиса на сервере.
// Сервер должен быть создан с grpc.ForceServerCodec(Codec{}).
func RegisterPhysicsServer(s grpc.ServiceRegistrar, srv PhysicsServer) {
	s.RegisterService(&ServiceDesc, srv)
}
