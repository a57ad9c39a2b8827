package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFeatures(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"contact-formblogseo", []string{"contact-form", "blog", "seo"}},
		{"", []string{}},
		{"totally-unknown", []string{"totally-unknown"}},
		{"blog, seo,contact-form", []string{"blog", "seo", "contact-form"}},
		{"booking-systemmaps", []string{"booking-system", "maps"}},
		{"seoblogextra-thing", []string{"seo", "blog", "extra-thing"}},
		{" , ,", []string{}},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseFeatures(tc.in))
		})
	}
}

func TestParseFeatures_LongestMatchFirst(t *testing.T) {
	// "booking" must not steal the prefix of "booking-system"
	assert.Equal(t, []string{"booking-system"}, ParseFeatures("booking-system"))
	assert.Equal(t, []string{"live-chat", "booking"}, ParseFeatures("live-chatbooking"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, []string{"cms"}, Normalize([]string{"cms"}, "blogseo"))
	assert.Equal(t, []string{"blog", "seo"}, Normalize(nil, "blogseo"))
	assert.Empty(t, Normalize(nil, ""))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Contact Form", Label("contact-form"))
	assert.Equal(t, "SEO", Label("seo"))
	assert.Equal(t, "API Integration", Label("api-integration"))
	assert.Equal(t, "Élan Vital", Label("élan-vital"))
	assert.Equal(t, "Über", Label("über"))
}
