package corecrypter

const (
	// KeySize - size (bytes) of master, data and metadata keys
	KeySize = 32

	// IDSize - size (bytes) of the per-file identifier
	IDSize = 32

	// TagSize - size (bytes) of the AES-GCM authentication tag
	TagSize = 16

	// MinIVSize - smallest per-block IV accepted on disk
	MinIVSize = 12

	// MaxIVSize - largest per-block IV accepted on disk
	MaxIVSize = 64

	// DefaultIVSize - IV size used when creating new filesystems
	DefaultIVSize = 12
)
