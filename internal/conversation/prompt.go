package conversation

// ToolResultsPlaceholder marks where formatted tool results go in the tool-results template.
const ToolResultsPlaceholder = "{tool_results}"

// DefaultSystemPrompt is used when no prompt file is configured.
const DefaultSystemPrompt = `You are a virtual sales consultant for a telecom operator.
Help the customer pick an offer (internet, TV, mobile), explain products,
check their current services and invoices, and place orders.

Keep answers short and friendly: three or four sentences unless asked for details.
Never show command syntax to the customer.

Tools. Write a command on its own and nothing will be shown to the customer until
the results come back:
[CHECK_CUSTOMER: pesel] customer profile, customer ID and active services
[GET_CATALOG] or [GET_CATALOG: type] product catalog with product IDs
[CREATE_ORDER: customer_id, product_id, ...] place an order once the customer confirmed it
[CHECK_INVOICES: customer_id] invoices and payment status
[CHECK_INVOICES_BY_PESEL: pesel] invoices when only the PESEL is known

When the customer gives an 11-digit PESEL, look them up right away.`

// DefaultToolResultsTemplate wraps tool output before it goes back to the model.
const DefaultToolResultsTemplate = `The tools returned:

{tool_results}

Answer the customer's last message using these results. Do not repeat command
syntax. If a result starts with ❌, explain the problem in plain words.`

const (
	// DefaultGreeting is sent when a session starts.
	DefaultGreeting = "Hi! I'm your virtual sales consultant. How can I help you today?"
	// DefaultApology is sent when a turn fails.
	DefaultApology = "Sorry, something went wrong on our side. Please try again in a moment."
	// DefaultExhaustionFallback is delivered when a turn ends on the tool limit with nothing else to say.
	DefaultExhaustionFallback = "Sorry, I couldn't finish checking that. Could you rephrase your question?"
	// DefaultToolIterationLimit bounds the tool rounds of a single turn.
	DefaultToolIterationLimit = 3
)
