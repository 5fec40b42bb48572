package editor

// KeyGen выдаёт монотонно растущие ключи типов блоков, начиная с 1.
// Каждый каталог владеет своим генератором.
type KeyGen struct {
	next uint64
}

func NewKeyGen() *KeyGen {
	return &KeyGen{next: 1}
}

// Next возвращает новый ключ
func (g *KeyGen) Next() uint64 {
	k := g.next
	g.next++
	return k
}

// Peek возвращает ключ, который будет выдан следующим
func (g *KeyGen) Peek() uint64 {
	return g.next
}

// Reset начинает выдачу заново с 1
func (g *KeyGen) Reset() {
	g.next = 1
}
