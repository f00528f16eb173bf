package resources

func text(names ...string) []Column      { return typed(TypeText, names) }
func numeric(names ...string) []Column   { return typed(TypeNumeric, names) }
func timestamp(names ...string) []Column { return typed(TypeTimestamp, names) }

func typed(t ColumnType, names []string) []Column {
	out := make([]Column, len(names))
	for i, n := range names {
		out[i] = Column{Name: n, Type: t}
	}
	return out
}

func cols(groups ...[]Column) []Column {
	var out []Column
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func col(name string, t ColumnType) []Column { return []Column{{Name: name, Type: t}} }

// DefaultDefinitions returns fresh definitions for every domain served by
// the generic record API.
func DefaultDefinitions() []*Definition {
	return []*Definition{
		{
			Name:  "projects",
			Table: "projects",
			Columns: cols(
				text("title", "description", "status", "priority", "category"),
				col("client_id", TypeUUID),
				numeric("budget", "spent"),
				col("progress", TypeInt),
				col("start_date", TypeDate), col("end_date", TypeDate),
				col("tags", TypeTextArray),
				col("metadata", TypeJSONB),
			),
			Required:   []string{"title"},
			Filterable: []string{"status", "priority", "category", "client_id", "budget", "start_date", "end_date", "tags"},
			Sortable:   []string{"title", "status", "budget", "progress", "start_date", "end_date"},
			Searchable: []string{"title", "description"},
		},
		{
			Name:  "clients",
			Table: "clients",
			Columns: cols(
				text("name", "email", "phone", "company", "status", "website", "address", "notes"),
				numeric("total_revenue"),
				col("tags", TypeTextArray),
			),
			Required:   []string{"name"},
			Filterable: []string{"status", "company", "email", "tags"},
			Sortable:   []string{"name", "company", "status", "total_revenue"},
			Searchable: []string{"name", "email", "company"},
		},
		{
			Name:  "invoices",
			Table: "invoices",
			Columns: cols(
				text("invoice_number", "client_name", "client_email", "status", "currency", "notes"),
				col("client_id", TypeUUID),
				col("project_id", TypeUUID),
				col("items", TypeJSONB),
				numeric("subtotal", "tax_rate", "tax_amount", "discount", "total_amount"),
				col("issue_date", TypeDate), col("due_date", TypeDate),
				timestamp("sent_at", "paid_at"),
			),
			Required:    []string{"client_name"},
			CreateRoute: "/api/v1/invoices",
			ReadOnly:    []string{"invoice_number", "status", "items", "subtotal", "tax_rate", "tax_amount",
				"discount", "total_amount", "sent_at", "paid_at"},
			Filterable:  []string{"status", "client_id", "project_id", "currency", "due_date", "issue_date", "total_amount"},
			Sortable:    []string{"invoice_number", "status", "total_amount", "due_date", "issue_date"},
			Searchable:  []string{"invoice_number", "client_name", "client_email"},
		},
		{
			Name:  "tasks",
			Table: "tasks",
			Columns: cols(
				text("title", "description", "status", "priority", "assignee"),
				col("project_id", TypeUUID),
				col("due_date", TypeDate),
				numeric("estimated_hours", "actual_hours"),
				col("position", TypeInt),
				col("labels", TypeTextArray),
				timestamp("completed_at"),
			),
			Required:    []string{"title"},
			Filterable:  []string{"status", "priority", "project_id", "assignee", "due_date", "labels"},
			Sortable:    []string{"title", "status", "priority", "due_date", "position"},
			Searchable:  []string{"title", "description"},
			DefaultSort: "position",
		},
		{
			Name:  "time_entries",
			Table: "time_entries",
			Columns: cols(
				col("project_id", TypeUUID),
				col("task_id", TypeUUID),
				text("description"),
				timestamp("started_at", "ended_at"),
				col("duration_minutes", TypeInt),
				col("billable", TypeBool),
				numeric("hourly_rate"),
			),
			Required:    []string{"started_at"},
			Filterable:  []string{"project_id", "task_id", "billable", "started_at"},
			Sortable:    []string{"started_at", "duration_minutes"},
			Searchable:  []string{"description"},
			DefaultSort: "-started_at",
		},
		{
			Name:  "expenses",
			Table: "expenses",
			Columns: cols(
				text("title", "category", "vendor", "status", "currency", "receipt_url", "notes"),
				numeric("amount"),
				col("expense_date", TypeDate),
				col("project_id", TypeUUID),
				col("billable", TypeBool),
			),
			Required:    []string{"title", "amount"},
			Filterable:  []string{"category", "status", "project_id", "billable", "expense_date", "amount"},
			Sortable:    []string{"title", "amount", "expense_date", "category"},
			Searchable:  []string{"title", "vendor", "notes"},
			DefaultSort: "-expense_date",
		},
		{
			Name:  "job_positions",
			Table: "job_positions",
			Columns: cols(
				text("title", "department", "location", "employment_type", "status", "description"),
				numeric("salary_min", "salary_max"),
				col("openings", TypeInt),
				col("applicants_count", TypeInt),
				col("skills", TypeTextArray),
				timestamp("closes_at"),
			),
			Required:   []string{"title"},
			ReadOnly:   []string{"applicants_count"},
			Filterable: []string{"department", "location", "employment_type", "status", "skills"},
			Sortable:   []string{"title", "status", "salary_max", "closes_at"},
			Searchable: []string{"title", "department", "description"},
		},
		{
			Name:  "pipeline_deals",
			Table: "pipeline_deals",
			Columns: cols(
				text("title", "stage", "contact_name", "contact_email", "source", "notes"),
				col("client_id", TypeUUID),
				numeric("value"),
				col("probability", TypeInt),
				col("expected_close_date", TypeDate),
			),
			Required:   []string{"title", "stage"},
			Filterable: []string{"stage", "client_id", "source", "value", "expected_close_date"},
			Sortable:   []string{"title", "stage", "value", "probability", "expected_close_date"},
			Searchable: []string{"title", "contact_name", "contact_email"},
		},
		{
			Name:  "portfolio_items",
			Table: "portfolio_items",
			Columns: cols(
				text("title", "description", "category", "cover_url", "project_url", "visibility"),
				col("featured", TypeBool),
				col("views", TypeInt),
				col("tags", TypeTextArray),
			),
			Required:   []string{"title"},
			ReadOnly:   []string{"views"},
			Filterable: []string{"category", "visibility", "featured", "tags"},
			Sortable:   []string{"title", "views"},
			Searchable: []string{"title", "description"},
		},
		{
			Name:  "translations",
			Table: "translations",
			Columns: cols(
				text("source_language", "target_language", "source_text", "translated_text", "status", "provider"),
				col("character_count", TypeInt),
			),
			Required:   []string{"source_language", "target_language", "source_text"},
			Filterable: []string{"source_language", "target_language", "status", "provider"},
			Sortable:   []string{"status", "character_count"},
			Searchable: []string{"source_text", "translated_text"},
		},
		{
			Name:  "chat_messages",
			Table: "chat_messages",
			Columns: cols(
				text("conversation_id", "role", "content", "model"),
				col("tokens", TypeInt),
				col("attachments", TypeJSONB),
			),
			Required:    []string{"conversation_id", "role", "content"},
			Filterable:  []string{"conversation_id", "role", "model"},
			Sortable:    []string{"tokens"},
			Searchable:  []string{"content"},
			DefaultSort: "created_at",
		},
		{
			Name:  "notifications",
			Table: "notifications",
			Columns: cols(
				text("title", "message", "type", "link"),
				col("is_read", TypeBool),
				timestamp("read_at"),
				col("data", TypeJSONB),
			),
			Required:   []string{"title"},
			Filterable: []string{"type", "is_read"},
			Sortable:   []string{"type"},
			Searchable: []string{"title", "message"},
			HardDelete: true,
		},
		{
			Name:  "reports",
			Table: "reports",
			Columns: cols(
				text("name", "type", "status", "format", "file_url"),
				col("period_start", TypeDate), col("period_end", TypeDate),
				col("parameters", TypeJSONB),
				timestamp("generated_at"),
			),
			Required:   []string{"name", "type"},
			Filterable: []string{"type", "status", "format", "period_start"},
			Sortable:   []string{"name", "type", "generated_at"},
			Searchable: []string{"name"},
		},
		{
			Name:  "ai_designs",
			Table: "ai_designs",
			Columns: cols(
				text("title", "prompt", "model", "style", "image_url", "status"),
				col("width", TypeInt), col("height", TypeInt),
				col("favorite", TypeBool),
				col("settings", TypeJSONB),
			),
			Required:   []string{"prompt"},
			Filterable: []string{"model", "style", "status", "favorite"},
			Sortable:   []string{"title", "model"},
			Searchable: []string{"title", "prompt"},
		},
		{
			Name:  "voice_profiles",
			Table: "voice_profiles",
			Columns: cols(
				text("name", "provider", "voice_id", "language", "gender", "sample_url"),
				numeric("stability", "similarity", "speed"),
				col("is_default", TypeBool),
			),
			Required:   []string{"name", "provider"},
			Filterable: []string{"provider", "language", "gender", "is_default"},
			Sortable:   []string{"name", "provider"},
			Searchable: []string{"name"},
		},
		{
			Name:  "escrow_deposits",
			Table: "escrow_deposits",
			Columns: cols(
				text("project_title", "project_description", "client_name", "client_email", "client_avatar",
					"currency", "status", "completion_password", "payment_method", "payment_id",
					"contract_url", "dispute_reason", "dispute_status", "notes"),
				col("client_id", TypeUUID),
				numeric("amount"),
				col("progress_percentage", TypeInt),
				timestamp("contract_signed_at", "released_at", "completed_at", "cancelled_at"),
			),
			Required:    []string{"project_title", "client_name", "client_email", "amount"},
			CreateRoute: "/api/v1/escrow/deposits",
			ReadOnly:    []string{"amount", "currency", "payment_method", "status", "progress_percentage",
				"completion_password", "released_at", "completed_at", "cancelled_at"},
			Hidden:      []string{"completion_password"},
			Filterable:  []string{"status", "currency", "payment_method", "client_id", "amount"},
			Sortable:    []string{"project_title", "client_name", "amount", "status", "progress_percentage"},
			Searchable:  []string{"project_title", "client_name", "client_email"},
		},
		{
			Name:  "escrow_milestones",
			Table: "escrow_milestones",
			Columns: cols(
				col("deposit_id", TypeUUID),
				text("title", "description", "status", "approval_notes", "rejection_reason"),
				numeric("amount"),
				col("percentage", TypeInt),
				col("due_date", TypeDate), col("start_date", TypeDate),
				timestamp("completed_at", "approved_at", "rejected_at"),
				col("deliverables", TypeTextArray),
			),
			Required: []string{"deposit_id", "title", "amount", "percentage"},
			ReadOnly: []string{"status", "approval_notes", "rejection_reason",
				"completed_at", "approved_at", "rejected_at"},
			Filterable:  []string{"deposit_id", "status", "due_date"},
			Sortable:    []string{"title", "due_date", "amount", "percentage"},
			Searchable:  []string{"title", "description"},
			DefaultSort: "due_date",
		},
		{
			Name:  "escrow_transactions",
			Table: "escrow_transactions",
			Columns: cols(
				col("deposit_id", TypeUUID),
				text("type", "currency", "status", "payment_method", "payment_id", "description"),
				numeric("amount", "fees", "net_amount"),
				col("metadata", TypeJSONB),
				timestamp("completed_at"),
			),
			Required:    []string{"deposit_id", "type", "amount"},
			CreateRoute: "/api/v1/escrow/deposits/:id/release",
			ReadOnly:    []string{"deposit_id", "type", "amount", "fees", "net_amount", "currency",
				"status", "completed_at"},
			Filterable:  []string{"deposit_id", "type", "status"},
			Sortable:    []string{"amount", "type"},
			Searchable:  []string{"description"},
		},
		{
			Name:  "escrow_fees",
			Table: "escrow_fees",
			Columns: cols(
				col("deposit_id", TypeUUID),
				numeric("platform_fee", "platform_percentage", "payment_fee", "payment_percentage",
					"withdrawal_fee", "total_fees"),
				text("currency"),
			),
			Required:    []string{"deposit_id"},
			CreateRoute: "/api/v1/escrow/deposits",
			ReadOnly:    []string{"deposit_id", "platform_fee", "platform_percentage", "payment_fee",
				"payment_percentage", "withdrawal_fee", "total_fees", "currency"},
			Filterable:  []string{"deposit_id"},
			Sortable:    []string{"total_fees"},
		},
	}
}

// DefaultRegistry registers DefaultDefinitions. The catalog is static, so a
// broken definition is a programming error.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultDefinitions()...)
	if err != nil {
		panic(err)
	}
	return r
}
