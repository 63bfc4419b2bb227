package service_test

import (
	"context"

	"github.com/buddy0323/IA-TEK-streamlit/internal/access"
	"github.com/buddy0323/IA-TEK-streamlit/internal/model"
	"github.com/buddy0323/IA-TEK-streamlit/internal/service"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func strPtr(s string) *string { return &s }

var _ = Describe("UserService", func() {
	var (
		ctx        context.Context
		s          *store
		users      service.UserService
		superRole  model.Role
		adminRole  model.Role
		superadmin model.User
		admin      model.User
		other      model.User
		adminActor service.Actor
	)

	BeforeEach(func() {
		ctx = context.Background()
		s = newStore()
		config := service.NewConfigService(fakeConfigs{s}, passthroughTx{})
		users = service.NewUserService(fakeUsers{s}, fakeRoles{s}, config, passthroughTx{})

		superRole = s.addRole(model.SuperRoleName, access.AllPermissions...)
		adminRole = s.addRole("administrador", access.PermUsers, access.PermOverview)
		superadmin = s.addUser(model.SuperadminUsername, "Admin#1234", superRole, model.StatusActive)
		admin = s.addUser("admin", "Admin#1234", adminRole, model.StatusActive)
		other = s.addUser("carla", "Carla#1234", adminRole, model.StatusActive)
		adminActor = actorFor(admin, adminRole)
	})

	Describe("CreateUser", func() {
		valid := func() service.CreateUserRequest {
			return service.CreateUserRequest{
				Username:        "dario",
				Email:           "dario@example.com",
				Password:        "Dario#1234",
				ConfirmPassword: "Dario#1234",
				RoleID:          adminRole.ID.String(),
			}
		}

		It("creates an active user with the chosen role", func() {
			res, err := users.CreateUser(ctx, adminActor, valid())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Username).To(Equal("dario"))
			Expect(res.RoleName).To(Equal("administrador"))
			Expect(res.Status).To(Equal(model.StatusActive))
			Expect(s.users).To(HaveLen(4))
		})

		DescribeTable("rejects invalid input without writing",
			func(mutate func(*service.CreateUserRequest), field string) {
				req := valid()
				mutate(&req)
				_, err := users.CreateUser(ctx, adminActor, req)
				var verr *service.ValidationError
				Expect(err).To(BeAssignableToTypeOf(verr))
				Expect(err.(*service.ValidationError).Field).To(Equal(field))
				Expect(s.users).To(HaveLen(3))
			},
			Entry("bad email", func(r *service.CreateUserRequest) { r.Email = "not-an-email" }, "email"),
			Entry("mismatched confirmation", func(r *service.CreateUserRequest) { r.ConfirmPassword = "Other#1234" }, "confirm_password"),
			Entry("weak password", func(r *service.CreateUserRequest) {
				r.Password, r.ConfirmPassword = "weakpass", "weakpass"
			}, "password"),
			Entry("duplicate username", func(r *service.CreateUserRequest) { r.Username = "carla" }, "username"),
			Entry("duplicate username in another case", func(r *service.CreateUserRequest) { r.Username = "CARLA" }, "username"),
			Entry("reserved username", func(r *service.CreateUserRequest) { r.Username = "SuperAdmin" }, "username"),
			Entry("duplicate email", func(r *service.CreateUserRequest) { r.Email = "CARLA@example.com" }, "email"),
			Entry("bad status", func(r *service.CreateUserRequest) { r.Status = "paused" }, "status"),
		)

		It("only lets a superadministrador assign the super role", func() {
			req := valid()
			req.RoleID = superRole.ID.String()
			_, err := users.CreateUser(ctx, adminActor, req)
			Expect(err).To(MatchError(service.ErrForbidden))

			_, err = users.CreateUser(ctx, superActor(superadmin), req)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("protected accounts", func() {
		It("never deactivates, deletes or re-roles the superadmin", func() {
			actor := superActor(superadmin)
			_, err := users.UpdateUser(ctx, actor, superadmin.ID.String(), service.UpdateUserRequest{Status: strPtr(model.StatusInactive)})
			Expect(err).To(MatchError(service.ErrForbidden))

			_, err = users.UpdateUser(ctx, actor, superadmin.ID.String(), service.UpdateUserRequest{RoleID: strPtr(adminRole.ID.String())})
			Expect(err).To(MatchError(service.ErrForbidden))

			Expect(users.DeleteUser(ctx, actor, superadmin.ID.String())).To(MatchError(service.ErrForbidden))
			Expect(s.users[superadmin.ID].Status).To(Equal(model.StatusActive))
		})

		It("keeps the superadmin password out of reach of other roles", func() {
			_, err := users.UpdateUser(ctx, adminActor, superadmin.ID.String(), service.UpdateUserRequest{
				Password: strPtr("New#12345"), ConfirmPassword: strPtr("New#12345"),
			})
			Expect(err).To(MatchError(service.ErrForbidden))
		})

		It("stops callers deactivating or deleting themselves", func() {
			_, err := users.UpdateUser(ctx, adminActor, admin.ID.String(), service.UpdateUserRequest{Status: strPtr(model.StatusInactive)})
			Expect(err).To(MatchError(service.ErrForbidden))
			Expect(users.DeleteUser(ctx, adminActor, admin.ID.String())).To(MatchError(service.ErrForbidden))
		})
	})

	It("updates another user's fields", func() {
		res, err := users.UpdateUser(ctx, adminActor, other.ID.String(), service.UpdateUserRequest{
			Email:       strPtr("carla.new@example.com"),
			Status:      strPtr(model.StatusInactive),
			Description: strPtr("moved"),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Email).To(Equal("carla.new@example.com"))
		Expect(res.Status).To(Equal(model.StatusInactive))
		Expect(res.RoleName).To(Equal("administrador"))
	})

	It("deletes another user", func() {
		Expect(users.DeleteUser(ctx, adminActor, other.ID.String())).To(Succeed())
		_, err := users.GetUser(ctx, other.ID.String())
		Expect(err).To(MatchError(service.ErrNotFound))
	})

	It("hides the super role from non-super callers", func() {
		roles, err := users.AssignableRoles(ctx, adminActor)
		Expect(err).NotTo(HaveOccurred())
		Expect(roles).To(HaveLen(1))
		Expect(roles[0].Name).To(Equal("administrador"))

		roles, err = users.AssignableRoles(ctx, superActor(superadmin))
		Expect(err).NotTo(HaveOccurred())
		Expect(roles).To(HaveLen(2))
	})
})
