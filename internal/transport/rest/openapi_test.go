package rest_test

import (
	"context"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestRestTransport(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "RestTransport Suite")
}

var _ = Describe("OpenAPI document", func() {
	var doc *openapi3.T

	BeforeEach(func() {
		loader := openapi3.NewLoader()
		var err error
		doc, err = loader.LoadFromFile("../../../api/openapi.yml")
		Expect(err).NotTo(HaveOccurred())
	})

	It("is a valid OpenAPI 3 document", func() {
		Expect(doc.Validate(context.Background())).To(Succeed())
	})

	It("documents the core API surface", func() {
		for _, path := range []string{
			"/auth/login",
			"/users/me",
			"/users/{id}/access",
			"/users/{id}/roles",
			"/roles/{id}/permissions",
			"/desks/{id}/users",
			"/desks/{id}/primary",
			"/leads",
			"/leads/{id}/assignee",
		} {
			Expect(doc.Paths.Find(path)).NotTo(BeNil(), "missing path %s", path)
		}
	})

	It("declares every lead visibility scope", func() {
		scope := doc.Components.Schemas["LeadScope"]
		Expect(scope).NotTo(BeNil())
		Expect(scope.Value.Enum).To(ConsistOf("all", "desk", "assigned", "none"))
	})
})
