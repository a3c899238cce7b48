// Package components extracts typed infrastructure components from sanitized
// diagrams and Terraform text.
package components

// ComponentType is the inferred category of a diagram node.
type ComponentType string

const (
	TypeVM           ComponentType = "VM"
	TypeDatabase     ComponentType = "Database"
	TypeLoadBalancer ComponentType = "LoadBalancer"
	TypeStorage      ComponentType = "Storage"
	TypeAPIGateway   ComponentType = "APIGateway"
	TypeFunction     ComponentType = "Function"
	TypeNetwork      ComponentType = "Network"
	TypeKubernetes   ComponentType = "Kubernetes"
	TypeOther        ComponentType = "Other"
)

// CloudProvider is the inferred provider of a diagram node.
type CloudProvider string

const (
	ProviderAWS     CloudProvider = "AWS"
	ProviderAzure   CloudProvider = "Azure"
	ProviderGCP     CloudProvider = "GCP"
	ProviderGeneric CloudProvider = "Generic"
)

// DiagramComponent is one distinct labeled node pulled from a diagram.
type DiagramComponent struct {
	Name     string        `json:"component_name"`
	Type     ComponentType `json:"component_type"`
	Provider CloudProvider `json:"cloud_provider"`
}

// Record is a priceable component: a canonical (cloud, service, sku,
// quantity) tuple plus the optional sizing attributes some services carry.
type Record struct {
	Cloud    string  `json:"cloud"`
	Service  string  `json:"service"`
	SKU      string  `json:"sku"`
	Quantity int     `json:"qty"`
	Region   string  `json:"region"`
	SizeGB   float64 `json:"size_gb,omitempty"`

	// Service-specific sizing. Zero means "not supplied"; pricing applies
	// its configured defaults and notes the substitution.
	Rules         int     `json:"rules,omitempty"`
	DataGB        float64 `json:"data_gb,omitempty"`
	CapacityUnits int     `json:"capacity_units,omitempty"`
	Hours         float64 `json:"hours,omitempty"`
}

// keywordRule maps a set of case-insensitive substrings to a result. Rules
// are evaluated in order; the first rule with any matching keyword wins.
type keywordRule[T any] struct {
	keywords []string
	result   T
}

var typeRules = []keywordRule[ComponentType]{
	{[]string{"ec2", "vm", "instance", "compute engine"}, TypeVM},
	{[]string{"rds", "database", "db", "sql", "cosmos", "cloud sql"}, TypeDatabase},
	// Storage outranks the load-balancer rule: "blob" contains "lb".
	{[]string{"s3", "bucket", "storage", "blob", "gcs"}, TypeStorage},
	{[]string{"load balancer", "lb", "alb", "nlb", "elb", "application gateway"}, TypeLoadBalancer},
	{[]string{"api gateway", "apigateway", "gateway"}, TypeAPIGateway},
	{[]string{"lambda", "function", "cloud function", "azure function", "serverless"}, TypeFunction},
	{[]string{"vpc", "network", "subnet", "vnet"}, TypeNetwork},
	{[]string{"kubernetes", "eks", "aks", "gke", "cluster"}, TypeKubernetes},
}

var providerRules = []keywordRule[CloudProvider]{
	{[]string{"ec2", "rds", "s3", "alb", "nlb", "elb", "lambda", "vpc", "eks", "aws"}, ProviderAWS},
	{[]string{"azure", "vm", "vnet", "blob", "cosmos", "app service", "application gateway", "aks"}, ProviderAzure},
	{[]string{"gcp", "gcs", "compute engine", "cloud sql", "gke"}, ProviderGCP},
}

func classify[T any](name string, rules []keywordRule[T], fallback T) T {
	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if containsFold(name, kw) {
				return rule.result
			}
		}
	}
	return fallback
}
