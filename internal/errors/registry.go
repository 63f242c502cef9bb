package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

const docBase = "https://viewdiff.dev/docs/errors/"

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Configuration Errors (E100-E119)
	// ============================================

	"E100": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "viewdiff.json could not be parsed. Check the JSON syntax.",
		DocURL:   docBase + "E100",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Unknown diff mode",
		Detail:   "differ.mode must be \"classic\" or \"optimized\".",
		DocURL:   docBase + "E101",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Configuration file not writable",
		Detail:   "The configuration could not be saved to disk.",
		DocURL:   docBase + "E102",
	},
	"E103": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		DocURL:   docBase + "E103",
	},
	"E104": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		DocURL:   docBase + "E104",
	},

	// ============================================
	// CLI Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryCLI,
		Message:  "Unknown output format",
		Detail:   "The --format flag accepts text, json or binary.",
		DocURL:   docBase + "E120",
	},
	"E121": {
		Category: CategoryCLI,
		Message:  "Trees do not converge",
		Detail:   "Applying the computed mutations to the old tree did not reproduce the new tree.",
		DocURL:   docBase + "E121",
	},
	"E122": {
		Category: CategoryCLI,
		Message:  "Server failed",
		Detail:   "The HTTP server stopped with an error.",
		DocURL:   docBase + "E122",
	},

	// ============================================
	// Document Errors (E200-E219)
	// ============================================

	"E200": {
		Category: CategoryDocument,
		Message:  "Malformed tree document",
		Detail:   "The document is not valid JSON or YAML.",
		DocURL:   docBase + "E200",
	},
	"E201": {
		Category: CategoryDocument,
		Message:  "Missing node tag",
		Detail:   "Every node needs a non-zero tag.",
		DocURL:   docBase + "E201",
	},
	"E202": {
		Category: CategoryDocument,
		Message:  "Duplicate node tag",
		Detail:   "Tags must be unique within a tree.",
		DocURL:   docBase + "E202",
	},
	"E203": {
		Category: CategoryDocument,
		Message:  "Unsupported document format",
		Detail:   "Tree documents must end in .json, .yaml or .yml.",
		DocURL:   docBase + "E203",
	},
	"E204": {
		Category: CategoryDocument,
		Message:  "Tree document too large",
		DocURL:   docBase + "E204",
	},

	// ============================================
	// Storage Errors (E220-E239)
	// ============================================

	"E220": {
		Category: CategoryStorage,
		Message:  "Tree document not found",
		DocURL:   docBase + "E220",
	},
	"E221": {
		Category: CategoryStorage,
		Message:  "Invalid storage reference",
		Detail:   "Use a file path or s3://bucket/key.",
		DocURL:   docBase + "E221",
	},
	"E222": {
		Category: CategoryStorage,
		Message:  "Storage request failed",
		DocURL:   docBase + "E222",
	},

	// ============================================
	// Protocol Errors (E240-E259)
	// ============================================

	"E240": {
		Category: CategoryProtocol,
		Message:  "Malformed client frame",
		Detail:   "A frame sent by a stream client could not be decoded.",
		DocURL:   docBase + "E240",
	},

	// ============================================
	// Mounting Errors (E300-E339)
	// ============================================

	"E300": {
		Category: CategoryMounting,
		Message:  "Create of an existing view",
		Detail:   "A Create mutation named a tag that is already registered.",
		DocURL:   docBase + "E300",
	},
	"E301": {
		Category: CategoryMounting,
		Message:  "Delete of an unknown view",
		DocURL:   docBase + "E301",
	},
	"E302": {
		Category: CategoryMounting,
		Message:  "Delete of a view with children",
		Detail:   "Children must be removed or deleted before their parent is deleted.",
		DocURL:   docBase + "E302",
	},
	"E303": {
		Category: CategoryMounting,
		Message:  "Insert of an unknown view",
		DocURL:   docBase + "E303",
	},
	"E304": {
		Category: CategoryMounting,
		Message:  "Insert of an attached view",
		Detail:   "A view must be removed from its parent before it is inserted again.",
		DocURL:   docBase + "E304",
	},
	"E305": {
		Category: CategoryMounting,
		Message:  "Insert index out of range",
		DocURL:   docBase + "E305",
	},
	"E306": {
		Category: CategoryMounting,
		Message:  "Remove index does not hold the view",
		DocURL:   docBase + "E306",
	},
	"E307": {
		Category: CategoryMounting,
		Message:  "Update of an unknown view",
		DocURL:   docBase + "E307",
	},
	"E308": {
		Category: CategoryMounting,
		Message:  "Stale view in mutation",
		Detail:   "The mutation's view does not match the mounted view.",
		DocURL:   docBase + "E308",
	},
	"E309": {
		Category: CategoryMounting,
		Message:  "Unknown parent view",
		DocURL:   docBase + "E309",
	},
	"E310": {
		Category: CategoryMounting,
		Message:  "Mounted tree diverged",
		Detail:   "Replaying the transaction on the previous tree did not produce the committed tree.",
		DocURL:   docBase + "E310",
	},
	"E311": {
		Category: CategoryMounting,
		Message:  "Root family changed",
		Detail:   "A surface's root must keep its tag across commits.",
		DocURL:   docBase + "E311",
	},
	"E312": {
		Category: CategoryMounting,
		Message:  "Surface not found",
		DocURL:   docBase + "E312",
	},
	"E313": {
		Category: CategoryMounting,
		Message:  "Surface already started",
		DocURL:   docBase + "E313",
	},
	"E314": {
		Category: CategoryMounting,
		Message:  "Operation on the root view",
		Detail:   "The root view cannot be created, deleted, inserted or removed.",
		DocURL:   docBase + "E314",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
