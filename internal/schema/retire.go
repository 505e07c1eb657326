package schema

const (
	RetiredField     = "retired"
	RetiredDateField = "retired_date"
)

// Retireable marks a table whose rows are retired instead of deleted. It
// adds retired BOOLEAN NOT NULL DEFAULT false and retired_date TIMESTAMP NULL.
func Retireable(b *TableBuilder) {
	b.Boolean(RetiredField, NotNull).WithDefault("false")
	b.Timestamp(RetiredDateField, Nullable)
	b.retireable = true
}
