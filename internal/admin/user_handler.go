package admin

import (
	"fmt"
	"strings"

	"asset-tracker-backend/internal/audit"
	"asset-tracker-backend/internal/auth"
	"asset-tracker-backend/internal/database"
	"asset-tracker-backend/internal/models"
	"asset-tracker-backend/internal/tenant"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type UserRequest struct {
	Name            *string          `json:"name"`
	Username        *string          `json:"username"`
	Email           *string          `json:"email"`
	Phone           *string          `json:"phone"`
	Password        *string          `json:"password"`
	Role            *models.UserRole `json:"role"`
	AssignedStoreID *uint            `json:"assigned_store_id"`
}

type UserResponse struct {
	ID              uint            `json:"id"`
	Name            string          `json:"name"`
	Username        string          `json:"username"`
	Email           string          `json:"email"`
	Phone           string          `json:"phone"`
	Role            models.UserRole `json:"role"`
	AssignedStoreID *uint           `json:"assigned_store_id"`
	StoreName       string          `json:"store_name,omitempty"`
	CreatedAt       string          `json:"created_at"`
}

func toUserResponse(u models.User) UserResponse {
	r := UserResponse{
		ID:              u.ID,
		Name:            u.Name,
		Username:        u.Username,
		Email:           u.Email,
		Phone:           u.Phone,
		Role:            u.Role,
		AssignedStoreID: u.AssignedStoreID,
		CreatedAt:       u.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if u.AssignedStore != nil {
		r.StoreName = u.AssignedStore.Name
	}
	return r
}

func scopedUsers(c *fiber.Ctx) *gorm.DB {
	return tenant.FromCtx(c).Apply(database.DB.Model(&models.User{}), "assigned_store_id")
}

func listUsers(c *fiber.Ctx, q *gorm.DB) error {
	var users []models.User
	if err := q.Preload("AssignedStore").Order("name asc").Find(&users).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Could not list users")
	}
	res := make([]UserResponse, 0, len(users))
	for _, u := range users {
		res = append(res, toUserResponse(u))
	}
	return c.JSON(res)
}

// GET /api/users?role=Technician
func ListUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := scopedUsers(c)
		if role := c.Query("role"); role != "" {
			q = q.Where("role = ?", role)
		}
		return listUsers(c, q)
	}
}

// GET /api/users/technicians
func ListTechniciansHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return listUsers(c, scopedUsers(c).Where("role = ?", models.RoleTechnician))
	}
}

// POST /api/users
func CreateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		var body UserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		u := models.User{Role: models.RoleTechnician}
		if body.Role != nil {
			u.Role = *body.Role
		}
		applyUserFields(&u, &body)
		if u.Username == "" {
			u.Username = u.Email
		}
		if u.Name == "" || u.Username == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Name and username are required")
		}
		if body.Password == nil || len(*body.Password) < auth.MinPasswordLength {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Password must be at least %d characters", auth.MinPasswordLength))
		}
		u.AssignedStoreID = body.AssignedStoreID
		if u.AssignedStoreID == nil && u.Role != models.RoleSuperAdmin && actor.Role != models.RoleSuperAdmin {
			u.AssignedStoreID = actor.AssignedStoreID
		}
		if err := checkUserPlacement(c, actor, &u); err != nil {
			return err
		}
		if err := usernameAvailable(u.Username, u.Email, 0); err != nil {
			return err
		}

		hash, err := auth.HashPassword(*body.Password)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not hash password")
		}
		u.PasswordHash = hash

		if err := database.DB.Create(&u).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create user")
		}

		audit.Record(c, audit.LogOptions{
			StoreID: u.AssignedStoreID, EntityType: "user", EntityID: u.ID,
			Action: audit.ActionCreate, Description: fmt.Sprintf("%s %q created", u.Role, u.Username),
		})
		return c.Status(fiber.StatusCreated).JSON(toUserResponse(u))
	}
}

// PUT /api/users/:id
func UpdateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		u, err := managedUser(c, actor)
		if err != nil {
			return err
		}
		var body UserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		applyUserFields(u, &body)
		if body.Role != nil {
			u.Role = *body.Role
		}
		if body.AssignedStoreID != nil {
			id := *body.AssignedStoreID
			u.AssignedStoreID = &id
			u.AssignedStore = nil
		}
		if u.Name == "" || u.Username == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Name and username cannot be empty")
		}
		if err := checkUserPlacement(c, actor, u); err != nil {
			return err
		}
		if err := usernameAvailable(u.Username, u.Email, u.ID); err != nil {
			return err
		}
		if body.Password != nil && *body.Password != "" {
			if len(*body.Password) < auth.MinPasswordLength {
				return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Password must be at least %d characters", auth.MinPasswordLength))
			}
			hash, err := auth.HashPassword(*body.Password)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Could not hash password")
			}
			u.PasswordHash = hash
		}

		if err := database.DB.Omit("AssignedStore").Save(u).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update user")
		}

		audit.Record(c, audit.LogOptions{
			StoreID: u.AssignedStoreID, EntityType: "user", EntityID: u.ID,
			Action: audit.ActionUpdate, Description: fmt.Sprintf("User %q updated", u.Username),
		})
		return c.JSON(toUserResponse(*u))
	}
}

// DELETE /api/users/:id
func DeleteUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		u, err := managedUser(c, actor)
		if err != nil {
			return err
		}
		if u.ID == actor.ID {
			return fiber.NewError(fiber.StatusBadRequest, "You cannot delete your own account")
		}

		var held int64
		if err := database.DB.Model(&models.Asset{}).Where("assigned_to_id = ?", u.ID).Count(&held).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not check assigned assets")
		}
		if held > 0 {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("User still holds %d assets", held))
		}

		if err := database.DB.Delete(&models.User{}, u.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not delete user")
		}

		audit.Record(c, audit.LogOptions{
			StoreID: u.AssignedStoreID, EntityType: "user", EntityID: u.ID,
			Action: audit.ActionDelete, Description: fmt.Sprintf("User %q deleted", u.Username),
		})
		return c.JSON(fiber.Map{"message": "User deleted"})
	}
}

func applyUserFields(u *models.User, body *UserRequest) {
	if body.Name != nil {
		u.Name = strings.TrimSpace(*body.Name)
	}
	if body.Username != nil {
		u.Username = strings.ToLower(strings.TrimSpace(*body.Username))
	}
	if body.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*body.Email))
	}
	if body.Phone != nil {
		u.Phone = strings.TrimSpace(*body.Phone)
	}
}

// checkUserPlacement enforces who may hold which role where: Super Admins
// manage everyone, Admins only Technicians of their own scope.
func checkUserPlacement(c *fiber.Ctx, actor *models.User, u *models.User) error {
	if !u.Role.Valid() {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid role")
	}
	if u.Role == models.RoleSuperAdmin {
		if actor.Role != models.RoleSuperAdmin {
			return fiber.NewError(fiber.StatusForbidden, "Only a Super Admin can manage Super Admins")
		}
		u.AssignedStoreID = nil
		return nil
	}
	if actor.Role != models.RoleSuperAdmin && u.Role != models.RoleTechnician {
		return fiber.NewError(fiber.StatusForbidden, "Admins can only manage Technicians")
	}
	if u.AssignedStoreID == nil {
		return fiber.NewError(fiber.StatusBadRequest, "Admins and Technicians need a store")
	}
	var count int64
	if err := database.DB.Model(&models.Store{}).Where("id = ?", *u.AssignedStoreID).Count(&count).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Could not load store")
	}
	if count == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Store not found")
	}
	return tenant.Check(c, u.AssignedStoreID)
}

func managedUser(c *fiber.Ctx, actor *models.User) (*models.User, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid user id")
	}
	var u models.User
	if err := database.DB.First(&u, id).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "User not found")
	}
	if actor.Role == models.RoleSuperAdmin {
		return &u, nil
	}
	if u.Role != models.RoleTechnician || !tenant.FromCtx(c).Allows(u.AssignedStoreID) {
		return nil, fiber.NewError(fiber.StatusNotFound, "User not found")
	}
	return &u, nil
}

func usernameAvailable(username, email string, except uint) error {
	q := database.DB.Model(&models.User{}).Where("LOWER(username) = ?", username)
	if email != "" {
		q = database.DB.Model(&models.User{}).Where("LOWER(username) = ? OR LOWER(email) = ?", username, email)
	}
	if except != 0 {
		q = q.Where("id <> ?", except)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Could not check username")
	}
	if count > 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Username or email is already in use")
	}
	return nil
}
