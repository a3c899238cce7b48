package helpers

import (
	"encoding/json"
)

// TestUser represents a test user fixture
type TestUser struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Default test fixtures
var DefaultTestUser = TestUser{
	Email:    "test@example.com",
	Password: "test-password-123",
}

// SampleDiagram is a small already-sanitized three-tier diagram.
const SampleDiagram = `flowchart TD
A[Client] -->|HTTPS| B[Azure App Service];
B -->|TCP 1433| C[Azure SQL Database];
B --> D[Blob Storage];
`

// SampleModelJSON is a model reply in the strict JSON contract.
const SampleModelJSON = `{
  "diagram": "graph TD\n  A[Web App] --> B[Azure SQL Database]",
  "terraform": "resource \"azurerm_app_service\" \"web\" {}\nresource \"azurerm_mssql_database\" \"db\" {}"
}`

// SampleModelFenced is a model reply that ignored the JSON contract and used
// fenced blocks instead.
const SampleModelFenced = "Here is the architecture:\n" +
	"```mermaid\ngraph TD\n  A[Web App] --> B[Azure SQL Database]\n```\n" +
	"And the code:\n" +
	"```hcl\nresource \"azurerm_app_service\" \"web\" {}\n```\n"

// CreateTestLoginRequest creates a login request payload
func CreateTestLoginRequest(email, password string) map[string]interface{} {
	return map[string]interface{}{
		"email":    email,
		"password": password,
	}
}

// CreateTestMessageRequest creates a send-message request payload
func CreateTestMessageRequest(content, region string) map[string]interface{} {
	req := map[string]interface{}{
		"content": content,
	}
	if region != "" {
		req["region"] = region
	}
	return req
}

// MockChatResponse builds an Azure OpenAI chat-completions response body
// with the given content as the only choice.
func MockChatResponse(content string) map[string]interface{} {
	return map[string]interface{}{
		"choices": []map[string]interface{}{
			{
				"message": map[string]interface{}{
					"role":    "assistant",
					"content": content,
				},
			},
		},
	}
}

// MockRetailPage builds one Azure Retail Prices page.
func MockRetailPage(items []map[string]interface{}, nextPage string) map[string]interface{} {
	return map[string]interface{}{
		"Items":        items,
		"NextPageLink": nextPage,
	}
}

// RetailMeter builds one retail price item.
func RetailMeter(price float64, unit, meterName, skuName, serviceName, region, productName string) map[string]interface{} {
	return map[string]interface{}{
		"retailPrice":   price,
		"unitOfMeasure": unit,
		"meterName":     meterName,
		"skuName":       skuName,
		"serviceName":   serviceName,
		"armRegionName": region,
		"productName":   productName,
	}
}

// ToJSON converts a fixture to JSON string
func ToJSON(fixture interface{}) string {
	data, _ := json.Marshal(fixture)
	return string(data)
}

// FromJSON parses JSON string to map
func FromJSON(jsonStr string) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal([]byte(jsonStr), &result)
	return result
}
