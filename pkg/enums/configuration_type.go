package enums

// ConfigurationType selects how a service is priced.
type ConfigurationType string

const (
	ConfigurationBasePrice     ConfigurationType = "BASE_PRICE"
	ConfigurationOptionsSelect ConfigurationType = "OPTIONS_SELECT"
	ConfigurationOptionsSteps  ConfigurationType = "OPTIONS_STEPS"
	ConfigurationRangeSelect   ConfigurationType = "RANGE_SELECT"
)

var validConfigurationTypes = set[ConfigurationType]{
	ConfigurationBasePrice,
	ConfigurationOptionsSelect,
	ConfigurationOptionsSteps,
	ConfigurationRangeSelect,
}

func (c ConfigurationType) String() string {
	return string(c)
}

func (c ConfigurationType) IsValid() bool {
	return validConfigurationTypes.has(c)
}

func ParseConfigurationType(value string) (ConfigurationType, error) {
	return validConfigurationTypes.parse(value, "configuration type")
}
