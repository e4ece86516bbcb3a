package password

// MockHasher implements Hasher for tests without bcrypt's cost.
// The stored form is the input with a fixed prefix.
type MockHasher struct{}

func NewMockHasher() *MockHasher {
	return &MockHasher{}
}

func (m *MockHasher) Hash(loginHash string) (string, error) {
	return "hashed:" + loginHash, nil
}

func (m *MockHasher) Verify(stored, candidate string) bool {
	return stored == "hashed:"+candidate
}
