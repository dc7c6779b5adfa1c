package domain

// CommandName is the name of a tool command the model may embed in its output.
type CommandName string

const (
	CommandCheckCustomer        CommandName = "CHECK_CUSTOMER"
	CommandGetCatalog           CommandName = "GET_CATALOG"
	CommandCreateOrder          CommandName = "CREATE_ORDER"
	CommandCheckInvoices        CommandName = "CHECK_INVOICES"
	CommandCheckInvoicesByPESEL CommandName = "CHECK_INVOICES_BY_PESEL"
)

// ToolCommand is a command parsed out of model output.
type ToolCommand struct {
	Name CommandName `json:"name"`
	// Raw is the exact bracketed token as it appeared in the text.
	Raw  string   `json:"raw"`
	Args []string `json:"args"`
}

// ToolResult pairs a command with its rendered outcome.
type ToolResult struct {
	Command ToolCommand `json:"command"`
	Output  string      `json:"output"`
	Failed  bool        `json:"failed"`
}
