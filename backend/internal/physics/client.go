package physics

import (
	"context"

	"google.golang.org/grpc"
)

// PhysicsClient - типизированный клиент протокола физического сервера
type PhysicsClient struct {
	cc grpc.ClientConnInterface
}

// NewPhysicsClient создает клиент поверх установленного соединения
func NewPhysicsClient(cc grpc.ClientConnInterface) *PhysicsClient {
	return &PhysicsClient{cc: cc}
}

// CallOptions возвращает опции вызова, включающие msgpack кодек
func CallOptions() []grpc.CallOption {
	return []grpc.CallOption{grpc.ForceCodec(Codec{})}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, req any) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, FullMethod(method), req, out, CallOptions()...); err != nil {
		return nil, err
	}
	return out, nil
}

// Проброс вызовов к gRPC методам физического сервера

func (c *PhysicsClient) CreateBody(ctx context.Context, req *CreateBodyRequest) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c.cc, MethodCreateBody, req)
}

func (c *PhysicsClient) RemoveBody(ctx context.Context, req *BodyRequest) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c.cc, MethodRemoveBody, req)
}

func (c *PhysicsClient) ApplyImpulse(ctx context.Context, req *VectorRequest) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c.cc, MethodApplyImpulse, req)
}

func (c *PhysicsClient) ApplyTorqueImpulse(ctx context.Context, req *VectorRequest) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c.cc, MethodApplyTorqueImpulse, req)
}

func (c *PhysicsClient) Translation(ctx context.Context, req *BodyRequest) (*TranslationResponse, error) {
	return invoke[TranslationResponse](ctx, c.cc, MethodTranslation, req)
}

func (c *PhysicsClient) BodyState(ctx context.Context, req *BodyRequest) (*BodyStateResponse, error) {
	return invoke[BodyStateResponse](ctx, c.cc, MethodBodyState, req)
}

func (c *PhysicsClient) SetTranslation(ctx context.Context, req *VectorRequest) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c.cc, MethodSetTranslation, req)
}

func (c *PhysicsClient) SetLinvel(ctx context.Context, req *VectorRequest) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c.cc, MethodSetLinvel, req)
}

func (c *PhysicsClient) SetAngvel(ctx context.Context, req *VectorRequest) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c.cc, MethodSetAngvel, req)
}

func (c *PhysicsClient) SetNextKinematicTranslation(ctx context.Context, req *VectorRequest) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c.cc, MethodSetNextKinematicTranslation, req)
}

func (c *PhysicsClient) SetNextKinematicRotation(ctx context.Context, req *RotationRequest) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c.cc, MethodSetNextKinematicRotation, req)
}

func (c *PhysicsClient) CastRay(ctx context.Context, req *CastRayRequest) (*CastRayResponse, error) {
	return invoke[CastRayResponse](ctx, c.cc, MethodCastRay, req)
}

func (c *PhysicsClient) Step(ctx context.Context, req *StepRequest) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c.cc, MethodStep, req)
}
