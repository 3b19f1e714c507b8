// Package validate holds the field rules applied to drafts before anything
// is sent to the mutation layer: interface name uniqueness, MAC and IP
// syntax, and static addresses falling inside their subnet.
package validate

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/newtron-network/netedit/pkg/model"
	"github.com/newtron-network/netedit/pkg/util"
)

// NewInterfaceID is the id used when validating an interface that does not
// exist yet; no stored interface has it.
const NewInterfaceID = -1

// NameSet answers name uniqueness against the authoritative interface set.
type NameSet interface {
	NameInUse(name string, exceptID int) bool
}

var macRegexp = regexp.MustCompile(`^([0-9a-fA-F]{2}:){5}[0-9a-fA-F]{2}$`)

var engine *validator.Validate

func init() {
	engine = validator.New()

	if err := engine.RegisterValidation("mac6", validateMAC6); err != nil {
		panic(err)
	}
	engine.RegisterStructValidation(validateFields, Fields{})

	engine.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Fields is the editable surface of one draft. Subnet and Names are context
// for the cross-field rules and are not validated themselves.
type Fields struct {
	ID          int            `json:"-"`
	Name        string         `json:"name" validate:"required"`
	MACAddress  string         `json:"mac_address" validate:"omitempty,mac6"`
	MACRequired bool           `json:"-"`
	Mode        model.LinkMode `json:"mode" validate:"omitempty,oneof=dhcp static auto link_up"`
	IPAddress   string         `json:"ip_address" validate:"omitempty,ip"`

	Subnet *model.Subnet `json:"-" validate:"-"`
	Names  NameSet       `json:"-" validate:"-"`
}

func validateMAC6(fl validator.FieldLevel) bool {
	return macRegexp.MatchString(fl.Field().String())
}

// validateFields carries the rules that need more than one field.
func validateFields(sl validator.StructLevel) {
	f := sl.Current().Interface().(Fields)

	if f.Name != "" && f.Names != nil && f.Names.NameInUse(f.Name, f.ID) {
		sl.ReportError(f.Name, "name", "Name", "unique", "")
	}
	if f.MACRequired && f.MACAddress == "" {
		sl.ReportError(f.MACAddress, "mac_address", "MACAddress", "required", "")
	}
	if f.Subnet != nil && util.IsValidIP(f.IPAddress) && !staticAddressValid(f.Mode, f.Subnet, f.IPAddress) {
		sl.ReportError(f.IPAddress, "ip_address", "IPAddress", "in_subnet", f.Subnet.CIDR)
	}
}

// getValidationMessage returns a human-readable message for a validation error
func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "field is required"
	case "unique":
		return "interface name already in use"
	case "mac6":
		return "must be six colon-separated hex octets, e.g. 52:54:00:12:34:56"
	case "ip":
		return "must be a valid IPv4 or IPv6 address"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	case "in_subnet":
		return fmt.Sprintf("must be inside subnet %s", e.Param())
	default:
		return fmt.Sprintf("validation failed: %s", e.Tag())
	}
}

// Check validates f and returns a *util.ValidationError listing every
// failing field, or nil.
func Check(f Fields) error {
	err := engine.Struct(f)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("validating fields: %w", err)
	}
	b := &util.ValidationBuilder{}
	for _, e := range verrs {
		b.AddErrorf(e.Field(), "%s", getValidationMessage(e))
	}
	return b.Build()
}

// nameValid reports whether name is non-empty and not used by any
// interface other than id.
func nameValid(name string, id int, names NameSet) bool {
	return name != "" && !names.NameInUse(name, id)
}

// macValid reports whether mac is six colon-separated two-digit hex
// octets. An empty mac is valid only when it is not required.
func macValid(mac string, required bool) bool {
	if mac == "" {
		return !required
	}
	return engine.Var(mac, "mac6") == nil
}

// ipValid reports whether ip is an IPv4 or IPv6 literal. Empty means "not
// set yet" and is valid.
func ipValid(ip string) bool {
	return engine.Var(ip, "omitempty,ip") == nil
}

// addressInSubnet reports whether ip lies inside the subnet's CIDR. A
// malformed address or CIDR is never inside.
func addressInSubnet(ip string, subnet *model.Subnet) bool {
	if subnet == nil {
		return false
	}
	in, err := util.AddressInCIDR(ip, subnet.CIDR)
	return err == nil && in
}

// staticAddressValid applies the CIDR rule: with mode static and a subnet
// chosen, a set address must lie inside the subnet. Other combinations
// only need IP syntax.
func staticAddressValid(mode model.LinkMode, subnet *model.Subnet, ip string) bool {
	if !ipValid(ip) {
		return false
	}
	if mode != model.LinkModeStatic || subnet == nil || ip == "" {
		return true
	}
	return addressInSubnet(ip, subnet)
}

// CannotAddBond reports whether a bond draft must not be committed. The
// MAC is optional since a bond inherits its primary's.
func CannotAddBond(name, mac string, names NameSet) bool {
	return cannotAdd(name, mac, false, names)
}

// CannotAddBridge reports whether a bridge draft must not be committed.
func CannotAddBridge(name, mac string, names NameSet) bool {
	return cannotAdd(name, mac, false, names)
}

// CannotAddPhysical reports whether a physical interface draft must not be
// committed. A physical interface needs its MAC.
func CannotAddPhysical(name, mac string, names NameSet) bool {
	return cannotAdd(name, mac, true, names)
}

func cannotAdd(name, mac string, macRequired bool, names NameSet) bool {
	return !nameValid(name, NewInterfaceID, names) || !macValid(mac, macRequired)
}
