package physics

import (
	"github.com/vmihailenco/msgpack/v5"
)

// CodecName - имя кодека в заголовке content-type gRPC
const CodecName = "msgpack"

// Codec кодирует сообщения протокола физики в msgpack
type Codec struct{}

// Marshal кодирует сообщение
func (Codec) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

// Unmarshal декодирует сообщение
func (Codec) Unmarshal(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}

// Name возвращает имя кодека
func (Codec) Name() string {
	return CodecName
}
