package cache

// KeyPrefix - префиксы для разных типов ключей
type KeyPrefix string

const (
	PrefixLink   KeyPrefix = "link"   // link:customCode
	PrefixClicks KeyPrefix = "clicks" // clicks:customCode
)

// KeyBuilder - построитель ключей кэша
type KeyBuilder struct {
	namespace string // Опциональный namespace для multi-tenancy
}

// NewKeyBuilder создает новый построитель ключей
func NewKeyBuilder(namespace string) *KeyBuilder {
	return &KeyBuilder{namespace: namespace}
}

// Build создает ключ с префиксом и опциональным namespace
func (k *KeyBuilder) Build(prefix KeyPrefix, parts ...string) string {
	key := string(prefix)

	if k.namespace != "" {
		key = k.namespace + ":" + key
	}

	for _, part := range parts {
		key += ":" + part
	}

	return key
}

// Link создает ключ для хранения записи по короткому коду
func (k *KeyBuilder) Link(code string) string {
	return k.Build(PrefixLink, code)
}

// Clicks создает ключ для счетчика кликов
func (k *KeyBuilder) Clicks(code string) string {
	return k.Build(PrefixClicks, code)
}

// DefaultKeyBuilder - построитель ключей без namespace
var DefaultKeyBuilder = NewKeyBuilder("")
