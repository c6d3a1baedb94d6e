package user

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/jamii/core"
)

// Roles
const (
	// Admin
	RoleAdmin      = "admin:"
	RoleAdminOwner = "admin:owner"

	// Committee
	RoleCommittee = "committee:"

	// Staff
	RoleStaff = "staff:"

	// Resident
	RoleResident = "resident:"

	// Guest
	RoleGuest = "guest:"
)

var (
	AdminRoles     = []string{RoleAdmin, RoleAdminOwner}
	CommitteeRoles = []string{RoleCommittee}
	StaffRoles     = []string{RoleStaff}
	ResidentRoles  = []string{RoleResident}
	GuestRoles     = []string{RoleGuest}
	AllRoles       = getAllRoles()

	// ManagerRoles may publish events and resources.
	ManagerRoles = []string{RoleAdmin, RoleAdminOwner, RoleCommittee, RoleStaff}

	rolePriorities = map[string]int{
		// Admins: 30 - 21
		RoleAdminOwner: 30,
		RoleAdmin:      21,

		// Committee: 20 - 16
		RoleCommittee: 16,

		// Staff: 15 - 11
		RoleStaff: 11,

		// Residents: 10 - 6
		RoleResident: 6,

		// Guests: 5 - 1
		RoleGuest: 1,
	}

	Roles = []Role{
		{Name: "Guest", Value: RoleGuest},
		{Name: "Resident", Value: RoleResident},
		{Name: "Staff", Value: RoleStaff},
		{Name: "Committee Member", Value: RoleCommittee},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Admin Owner", Value: RoleAdminOwner},
	}
)

func getAllRoles() []string {
	all := make([]string, 0, 6)
	all = append(all, AdminRoles...)
	all = append(all, CommitteeRoles...)
	all = append(all, StaffRoles...)
	all = append(all, ResidentRoles...)
	all = append(all, GuestRoles...)
	return all
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	IsActive     bool      `json:"is_active"`
	Roles        []string  `json:"roles"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) RoleStartsWith(prefix string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.RoleStartsWith(RoleAdmin)
}

func (u *User) IsCommittee() bool {
	return u.RoleStartsWith(RoleCommittee)
}

func (u *User) IsStaff() bool {
	return u.RoleStartsWith(RoleStaff)
}

func (u *User) IsResident() bool {
	return u.RoleStartsWith(RoleResident)
}

// IsManager reports whether the user may publish events and resources.
func (u *User) IsManager() bool {
	return u.IsAdmin() || u.IsCommittee() || u.IsStaff()
}

// MemberGroup returns the dashboard group of the user's highest role.
func (u *User) MemberGroup() string {
	switch p := MaxRolePriority(u.Roles); {
	case p >= rolePriorities[RoleAdmin]:
		return GroupAdmins
	case p >= rolePriorities[RoleCommittee]:
		return GroupCommittee
	case p >= rolePriorities[RoleStaff]:
		return GroupStaff
	case p >= rolePriorities[RoleResident]:
		return GroupResidents
	}
	return GroupGuests
}

// Member groups
const (
	GroupResidents = "Residents"
	GroupStaff     = "Staff"
	GroupGuests    = "Guests"
	GroupCommittee = "Committee Members"
	GroupAdmins    = "Admins"
)

var MemberGroups = []string{GroupResidents, GroupStaff, GroupGuests, GroupCommittee, GroupAdmins}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string   `json:"name" validate:"required"`
	Username        string   `json:"username" validate:"omitempty,min=6,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Username, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string   `json:"name"`
	Username        string   `json:"username" validate:"omitempty,min=6,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	IsActive        *bool    `json:"is_active"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
	Password        string   `json:"password" validate:"omitempty"`
	PasswordConfirm string   `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc Service) error {
	name := core.CleanString(uu.Name)
	if name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	uname := core.CleanString(uu.Username, true /* lower */)
	if uname != "" {
		uu.Username = uname
	} else {
		uu.Username = origUsr.Username
	}

	email := core.CleanString(uu.Email, true /* lower */)
	if email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, uu.Username, uu.Email, origUsr)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

type QueryFilter struct {
	Search      string    `query:"search"`
	Roles       []string  `query:"role"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// Match reports whether usr satisfies every set field of the filter.
func (qf *QueryFilter) Match(usr User) bool {
	if qf.Search != "" {
		s := strings.ToLower(qf.Search)
		if !(strings.Contains(strings.ToLower(usr.Name), s) ||
			strings.Contains(usr.Username, s) ||
			strings.Contains(usr.Email, s)) {
			return false
		}
	}
	if qf.IsActive != nil && usr.IsActive != *qf.IsActive {
		return false
	}
	if !qf.CreatedFrom.IsZero() && usr.CreatedAt.Before(qf.CreatedFrom) {
		return false
	}
	if !qf.CreatedTo.IsZero() && usr.CreatedAt.After(qf.CreatedTo) {
		return false
	}
	if len(qf.Roles) > 0 {
		for _, role := range qf.Roles {
			if core.StringInSlice(role, usr.Roles) {
				return true
			}
		}
		return false
	}
	return true
}
