package constants

// Boolean string values
const (
	BoolTrue  = "true"
	BoolFalse = "false"
	BoolYes   = "yes"
	BoolNo    = "no"
	BoolOne   = "1"
	BoolZero  = "0"
)

// Result limits
const (
	DefaultListLimit = 100
	DefaultTopK      = 5
	MaxTopK          = 100
	StatsScanLimit   = 10000
	RecentNotesLimit = 10
)

// Text truncation lengths
const (
	PreviewLength       = 100
	SearchPreviewLength = 150
)

// Embedding calculations
const (
	BytesPerFloat32   = 4
	DefaultDimensions = 384
	TrigramWeight     = 0.5
)

// Graph relationship types
const (
	RelationTaggedWith = "TAGGED_WITH"
	RelationRelatedTo  = "RELATED_TO"
)

// File permissions
const (
	ConfigFileMode = 0600 // Secure file permissions for config
	DataDirMode    = 0755
)
