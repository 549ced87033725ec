package objectclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectKeyRoundTripsThroughURL(t *testing.T) {
	key := ObjectKey("u1", "d1", "../../etc/My Report.pdf")
	assert.Equal(t, "users/u1/documents/d1/My_Report.pdf", key)

	bucket, parsed := ParseS3URL("https://analysis-docs.s3.us-east-2.amazonaws.com/" + key)
	assert.Equal(t, "analysis-docs", bucket)
	assert.Equal(t, key, parsed)
}
