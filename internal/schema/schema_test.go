package schema_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/schema"
)

func TestCheck_NoFailuresReturnsNil(t *testing.T) {
	t.Parallel()

	err := schema.Check("Peers",
		schema.Required("name", "worker-1"),
		schema.Pattern("ip_address", "10.0.0.1", schema.IPAddressPattern),
		schema.RequiredID("site", bson.NewObjectID()),
	)
	assert.NoError(t, err)
}

func TestCheck_CollectsEveryFailedField(t *testing.T) {
	t.Parallel()

	err := schema.Check("ServerInstructions",
		schema.RequiredID("site", bson.ObjectID{}),
		schema.Required("operation", ""),
		schema.IntsInRange("times", []int{0, 5}, 1, 86400),
	)
	require.Error(t, err)

	var verr *schema.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "ServerInstructions", verr.Entity)
	assert.Len(t, verr.Fields, 3)
	for _, field := range []string{"site", "operation", "times"} {
		assert.True(t, verr.Has(field), "missing %s", field)
		assert.Contains(t, err.Error(), field)
	}
}

func TestNested_PrefixesEmbeddedFields(t *testing.T) {
	t.Parallel()

	inner := schema.Check("SiteConfigVariant", schema.RequiredMap[any]("cover_instructions", nil))
	err := schema.Check("Sites", schema.Nested("instructions.0", inner))

	var verr *schema.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("instructions.0.cover_instructions"))
}

func TestNested_PlainErrorKeepsMessage(t *testing.T) {
	t.Parallel()

	result := schema.Nested("scan_settings", errors.New("coverage must be below 100%s"))
	require.Len(t, result, 1)
	assert.Equal(t, "scan_settings", result[0].Field)
	assert.Equal(t, "coverage must be below 100%s", result[0].Message)
}

func TestOneOf(t *testing.T) {
	t.Parallel()

	assert.Nil(t, schema.OneOf("operation", "RUN", "RUN", "STOP"))
	assert.Nil(t, schema.OneOf("operation", "", "RUN", "STOP"), "empty values are left to Required")
	assert.NotNil(t, schema.OneOf("operation", "WALK", "RUN", "STOP"))
}

func TestURLPattern(t *testing.T) {
	t.Parallel()

	valid := []string{
		"https://www.site1.com",
		"http://192.168.1.1",
		"http://localhost:8080/path?q=1",
		"HTTPS://EXAMPLE.ORG/",
	}
	for _, u := range valid {
		assert.True(t, schema.URLPattern.MatchString(u), u)
	}

	invalid := []string{"ftp://example.com", "www.example.com", "https://", "http://exa mple.com"}
	for _, u := range invalid {
		assert.False(t, schema.URLPattern.MatchString(u), u)
	}
}

func TestIPAddressPattern(t *testing.T) {
	t.Parallel()

	assert.True(t, schema.IPAddressPattern.MatchString("192.168.1.1"))
	assert.True(t, schema.IPAddressPattern.MatchString("0.0.0.0"))
	assert.False(t, schema.IPAddressPattern.MatchString("256.1.1.1"))
	assert.False(t, schema.IPAddressPattern.MatchString("192.168.1"))
	assert.False(t, schema.IPAddressPattern.MatchString("01.1.1.1"))
}

func TestVersionPattern(t *testing.T) {
	t.Parallel()

	for _, v := range []string{"1.0", "1.9", "2.15", "99.99"} {
		assert.True(t, schema.VersionPattern.MatchString(v), v)
	}
	for _, v := range []string{"0.1", "1.05", "100.1", "1", "1.123"} {
		assert.False(t, schema.VersionPattern.MatchString(v), v)
	}
}
