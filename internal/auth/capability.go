package auth

// Role of an account
type Role string

const (
	RoleCustomer Role = "customer"
	RoleSeller   Role = "seller"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	_, ok := capabilities[r]
	return ok
}

// SelfRegistrable reports whether an account with this role may be created
// through public registration.
func (r Role) SelfRegistrable() bool {
	return r == RoleCustomer || r == RoleSeller
}

// Capability names one permitted operation
type Capability string

const (
	CapBookRead      Capability = "book:read"
	CapBookWrite     Capability = "book:write"
	CapBookManageAny Capability = "book:manage:any"
	CapBookExport    Capability = "book:export"

	CapCartManage Capability = "cart:manage"

	CapOrderCreate       Capability = "order:create"
	CapOrderReadOwn      Capability = "order:read:own"
	CapOrderCancelOwn    Capability = "order:cancel:own"
	CapOrderReadSeller   Capability = "order:read:seller"
	CapOrderStatusSeller Capability = "order:status:seller"
	CapOrderReadAny      Capability = "order:read:any"
	CapOrderStatusAny    Capability = "order:status:any"
	CapOrderCancelAny    Capability = "order:cancel:any"

	CapReviewWrite    Capability = "review:write"
	CapReviewModerate Capability = "review:moderate"

	CapDashboardSeller Capability = "dashboard:seller"
	CapDashboardAdmin  Capability = "dashboard:admin"
)

// capabilities is the role → permitted operations table.
var capabilities = map[Role][]Capability{
	RoleCustomer: {
		CapBookRead,
		CapCartManage,
		CapOrderCreate,
		CapOrderReadOwn,
		CapOrderCancelOwn,
		CapReviewWrite,
	},
	RoleSeller: {
		CapBookRead,
		CapBookWrite,
		CapBookExport,
		CapOrderReadSeller,
		CapOrderStatusSeller,
		CapDashboardSeller,
	},
	RoleAdmin: {
		CapBookRead,
		CapBookWrite,
		CapBookManageAny,
		CapBookExport,
		CapCartManage,
		CapOrderCreate,
		CapOrderReadOwn,
		CapOrderReadSeller,
		CapOrderStatusSeller,
		CapOrderReadAny,
		CapOrderStatusAny,
		CapOrderCancelOwn,
		CapOrderCancelAny,
		CapReviewWrite,
		CapReviewModerate,
		CapDashboardSeller,
		CapDashboardAdmin,
	},
}

// Can reports whether role is granted capability.
func Can(role Role, capability Capability) bool {
	for _, c := range capabilities[role] {
		if c == capability {
			return true
		}
	}
	return false
}

// Capabilities returns a copy of the capabilities granted to role.
func Capabilities(role Role) []Capability {
	out := make([]Capability, len(capabilities[role]))
	copy(out, capabilities[role])
	return out
}

// Principal is the authenticated caller of an operation
type Principal struct {
	UserID string
	Email  string
	Role   Role
}

// Can reports whether the principal's role grants capability.
func (p Principal) Can(capability Capability) bool {
	return Can(p.Role, capability)
}
