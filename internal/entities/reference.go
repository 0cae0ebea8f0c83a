package entities

// LookupTable names a reference table whose rows are found by name during setup.
type LookupTable string

const (
	LookupServiceProvider LookupTable = "service_providers"
	LookupPartCategory    LookupTable = "part_categories"
	LookupPartType        LookupTable = "part_types"
	LookupLineItemType    LookupTable = "line_item_types"
	LookupServiceCodeType LookupTable = "service_code_types"
)

// Valid reports whether t is a known lookup table.
func (t LookupTable) Valid() bool {
	switch t {
	case LookupServiceProvider, LookupPartCategory, LookupPartType, LookupLineItemType, LookupServiceCodeType:
		return true
	}
	return false
}

// ReferenceSeed describes the reference rows that must exist before a provisioning
// run can start. Each provider also gets a part category of the same name.
type ReferenceSeed struct {
	Providers        []ProviderSeed `yaml:"providers"`
	PartTypes        []string       `yaml:"part_types"`
	LineItemTypes    []string       `yaml:"line_item_types"`
	ServiceCodeTypes []string       `yaml:"service_code_types"`
}

// ProviderSeed is a service provider and its pay grades.
type ProviderSeed struct {
	Name      string         `yaml:"name"`
	PayGrades []PayGradeSeed `yaml:"pay_grades"`
}

// PayGradeSeed is a pay grade plus the bootstrap version every later version anchors to.
type PayGradeSeed struct {
	Type      string `yaml:"type"`
	Name      string `yaml:"name"`
	Effective string `yaml:"effective"`
}

// DateLayout is the layout used for effective dates in seed files and output.
const DateLayout = "2006-01-02"
