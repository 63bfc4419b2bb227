package access_test

import (
	"sort"

	"github.com/buddy0323/IA-TEK-streamlit/internal/access"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Permissions", func() {
	It("keeps the catalogue sorted with one entry per page", func() {
		Expect(sort.StringsAreSorted(access.AllPermissions)).To(BeTrue())
		Expect(access.AllPermissions).To(HaveLen(len(access.Pages)))
		for _, p := range access.Pages {
			Expect(access.IsKnownPermission(p.Permission)).To(BeTrue(), p.Permission)
		}
	})

	It("parses stored lists trimming blanks and duplicates", func() {
		set := access.ParsePermissions(" Roles ,Vista General,, Roles,")
		Expect(set.Sorted()).To(Equal([]string{"Roles", "Vista General"}))
		Expect(set.String()).To(Equal("Roles,Vista General"))
	})

	It("treats an empty list as no permissions", func() {
		Expect(access.ParsePermissions("")).To(BeEmpty())
	})

	It("flags restricted permissions", func() {
		Expect(access.IsRestrictedPermission(access.PermConfiguration)).To(BeTrue())
		Expect(access.IsRestrictedPermission(access.PermRoles)).To(BeTrue())
		Expect(access.IsRestrictedPermission(access.PermOverview)).To(BeFalse())
	})
})

var _ = Describe("Pages", func() {
	It("grants exactly the pages whose permission is held", func() {
		for mask := 0; mask < 1<<len(access.AllPermissions); mask += 37 {
			held := access.PermissionSet{}
			for i, p := range access.AllPermissions {
				if mask&(1<<i) != 0 {
					held[p] = struct{}{}
				}
			}
			pages := access.AccessiblePages(held)
			Expect(pages).To(HaveLen(len(held)))
			for _, page := range access.Pages {
				Expect(access.CanAccess(held, page.Slug)).To(Equal(held.Has(page.Permission)))
			}
		}
	})

	It("keeps navigation order", func() {
		pages := access.AccessiblePages(access.NewPermissionSet(access.PermRoles, access.PermOverview, access.PermUsers))
		slugs := []string{}
		for _, p := range pages {
			slugs = append(slugs, p.Slug)
		}
		Expect(slugs).To(Equal([]string{"overview", "users", "roles"}))
	})

	It("denies unknown pages", func() {
		Expect(access.CanAccess(access.NewPermissionSet(access.AllPermissions...), "nope")).To(BeFalse())
	})
})
