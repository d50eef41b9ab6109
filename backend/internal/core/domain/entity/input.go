package entity

// InputState - состояние клавиш управления на текущий тик
type InputState struct {
	Forward   bool `json:"forward"`
	Backward  bool `json:"backward"`
	Leftward  bool `json:"leftward"`
	Rightward bool `json:"rightward"`
	Jump      bool `json:"jump"`
}

// Any сообщает, нажата ли хотя бы одна клавиша
func (s InputState) Any() bool {
	return s.Forward || s.Backward || s.Leftward || s.Rightward || s.Jump
}

// InputEdges - события, выделенные сравнением двух соседних состояний ввода
type InputEdges struct {
	Changed     bool // Изменилась любая клавиша
	JumpPressed bool // Передний фронт прыжка
}

// DetectEdges сравнивает предыдущее и текущее состояние ввода
func DetectEdges(prev, cur InputState) InputEdges {
	return InputEdges{
		Changed:     prev != cur,
		JumpPressed: cur.Jump && !prev.Jump,
	}
}

// Merge объединяет события нескольких смен ввода
func (e InputEdges) Merge(other InputEdges) InputEdges {
	return InputEdges{
		Changed:     e.Changed || other.Changed,
		JumpPressed: e.JumpPressed || other.JumpPressed,
	}
}
