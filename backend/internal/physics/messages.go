package physics

// Сообщения протокола физического сервера. Векторы передаются как [x, y, z],
// кватернионы как [x, y, z, w].

// Vec3 - трехмерный вектор
type Vec3 [3]float64

// Quat - кватернион (x, y, z, w)
type Quat [4]float64

// Body описывает создаваемое тело
type Body struct {
	ID             string  `msgpack:"id"`
	Kind           string  `msgpack:"kind"`  // fixed, kinematic_position, dynamic
	Shape          string  `msgpack:"shape"` // box, ball, hull
	Position       Vec3    `msgpack:"position"`
	Rotation       Quat    `msgpack:"rotation"`
	HalfExtents    Vec3    `msgpack:"half_extents,omitempty"`
	Radius         float64 `msgpack:"radius,omitempty"`
	Model          string  `msgpack:"model,omitempty"`
	Scale          float64 `msgpack:"scale,omitempty"`
	Restitution    float64 `msgpack:"restitution"`
	Friction       float64 `msgpack:"friction"`
	LinearDamping  float64 `msgpack:"linear_damping"`
	AngularDamping float64 `msgpack:"angular_damping"`
	CanSleep       bool    `msgpack:"can_sleep"`
}

// CreateBodyRequest - запрос на создание тела
type CreateBodyRequest struct {
	Body Body `msgpack:"body"`
}

// BodyRequest - запрос, адресованный телу
type BodyRequest struct {
	ID string `msgpack:"id"`
}

// VectorRequest - запрос с вектором: импульс, позиция или скорость
type VectorRequest struct {
	ID     string `msgpack:"id"`
	Vector Vec3   `msgpack:"vector"`
}

// RotationRequest - запрос с кватернионом
type RotationRequest struct {
	ID       string `msgpack:"id"`
	Rotation Quat   `msgpack:"rotation"`
}

// StatusResponse - ответ без данных
type StatusResponse struct {
	Status string `msgpack:"status"`
}

// TranslationResponse - позиция тела
type TranslationResponse struct {
	Position Vec3 `msgpack:"position"`
}

// BodyStateResponse - полное состояние тела
type BodyStateResponse struct {
	ID              string `msgpack:"id"`
	Position        Vec3   `msgpack:"position"`
	Rotation        Quat   `msgpack:"rotation"`
	LinearVelocity  Vec3   `msgpack:"linear_velocity"`
	AngularVelocity Vec3   `msgpack:"angular_velocity"`
}

// CastRayRequest - запрос на пересечение луча
type CastRayRequest struct {
	Origin      Vec3    `msgpack:"origin"`
	Direction   Vec3    `msgpack:"direction"`
	MaxDistance float64 `msgpack:"max_distance"`
	Solid       bool    `msgpack:"solid"`
}

// CastRayResponse - результат луча; Hit == false означает промах
type CastRayResponse struct {
	Hit          bool    `msgpack:"hit"`
	BodyID       string  `msgpack:"body_id,omitempty"`
	TimeOfImpact float64 `msgpack:"toi"`
}

// StepRequest - шаг симуляции
type StepRequest struct {
	Delta float64 `msgpack:"delta"`
}

// StatusOK - статус успешного ответа
const StatusOK = "ok"
