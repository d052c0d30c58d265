package domain

// Entity labels with declared constraints
const (
	LabelAS           = "AS"
	LabelPrefix       = "PREFIX"
	LabelIP           = "IP"
	LabelDomainName   = "DOMAIN_NAME"
	LabelCountry      = "COUNTRY"
	LabelOrganization = "ORGANIZATION"
)

// Auxiliary labels used by crawlers
const (
	LabelEstimate  = "ESTIMATE"
	LabelPeeringDB = "PeeringDB"
)

// Property names with special meaning
const (
	PropASN         = "asn"
	PropPrefix      = "prefix"
	PropIP          = "ip"
	PropAF          = "af"
	PropName        = "name"
	PropCountryCode = "country_code"
	PropExternalID  = "id"
)

// Relationship types. By convention types are upper case.
const (
	LinkExternalID               = "EXTERNAL_ID"
	LinkRouteOriginAuthorization = "ROUTE_ORIGIN_AUTHORIZATION"
	LinkPopulation               = "POPULATION"
)
