package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// textSize makes a string column TEXT rather than VARCHAR(255).
const textSize = 2147483647

var (
	// DiseasesColumns holds the columns for the "diseases" table.
	DiseasesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "name", Type: field.TypeString, Unique: true, Size: 100},
		{Name: "description", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "lifestyle_tips", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "diet_advice", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "medical_advice", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "created_at", Type: field.TypeTime},
	}
	// DiseasesTable holds the schema information for the "diseases" table.
	DiseasesTable = &schema.Table{
		Name:       "diseases",
		Columns:    DiseasesColumns,
		PrimaryKey: []*schema.Column{DiseasesColumns[0]},
	}

	// SymptomsColumns holds the columns for the "symptoms" table.
	SymptomsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "name", Type: field.TypeString, Unique: true, Size: 100},
		{Name: "description", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "created_at", Type: field.TypeTime},
	}
	// SymptomsTable holds the schema information for the "symptoms" table.
	SymptomsTable = &schema.Table{
		Name:       "symptoms",
		Columns:    SymptomsColumns,
		PrimaryKey: []*schema.Column{SymptomsColumns[0]},
	}

	// DiseaseSymptomsColumns holds the columns for the "disease_symptoms" table.
	DiseaseSymptomsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "weight", Type: field.TypeInt},
		{Name: "disease_id", Type: field.TypeInt},
		{Name: "symptom_id", Type: field.TypeInt},
	}
	// DiseaseSymptomsTable holds the schema information for the "disease_symptoms" table.
	DiseaseSymptomsTable = &schema.Table{
		Name:       "disease_symptoms",
		Columns:    DiseaseSymptomsColumns,
		PrimaryKey: []*schema.Column{DiseaseSymptomsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "disease_symptoms_diseases_weights",
				Columns:    []*schema.Column{DiseaseSymptomsColumns[2]},
				RefColumns: []*schema.Column{DiseasesColumns[0]},
				OnDelete:   schema.Cascade,
			},
			{
				Symbol:     "disease_symptoms_symptoms_weights",
				Columns:    []*schema.Column{DiseaseSymptomsColumns[3]},
				RefColumns: []*schema.Column{SymptomsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "diseasesymptom_disease_id_symptom_id",
				Unique:  true,
				Columns: []*schema.Column{DiseaseSymptomsColumns[2], DiseaseSymptomsColumns[3]},
			},
		},
	}

	// SubmissionsColumns holds the columns for the "submissions" table.
	SubmissionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 36},
		{Name: "user_id", Type: field.TypeString, Nullable: true},
		{Name: "session_id", Type: field.TypeString, Default: ""},
		{Name: "severity_score", Type: field.TypeFloat64},
		{Name: "severity_category", Type: field.TypeString, Size: 10},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "primary_disease_id", Type: field.TypeInt, Nullable: true},
	}
	// SubmissionsTable holds the schema information for the "submissions" table.
	SubmissionsTable = &schema.Table{
		Name:       "submissions",
		Columns:    SubmissionsColumns,
		PrimaryKey: []*schema.Column{SubmissionsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "submissions_diseases_primary",
				Columns:    []*schema.Column{SubmissionsColumns[6]},
				RefColumns: []*schema.Column{DiseasesColumns[0]},
				OnDelete:   schema.SetNull,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "submission_user_id_created_at",
				Columns: []*schema.Column{SubmissionsColumns[1], SubmissionsColumns[5]},
			},
			{
				Name:    "submission_created_at",
				Columns: []*schema.Column{SubmissionsColumns[5]},
			},
		},
	}

	// SubmissionSymptomsColumns holds the columns for the "submission_symptoms" table.
	SubmissionSymptomsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "symptom_id", Type: field.TypeInt},
		{Name: "severity", Type: field.TypeInt},
		{Name: "duration", Type: field.TypeString, Size: 50, Default: ""},
		{Name: "onset", Type: field.TypeString, Size: 10, Default: ""},
		{Name: "submission_id", Type: field.TypeString, Size: 36},
	}
	// SubmissionSymptomsTable holds the schema information for the "submission_symptoms" table.
	SubmissionSymptomsTable = &schema.Table{
		Name:       "submission_symptoms",
		Columns:    SubmissionSymptomsColumns,
		PrimaryKey: []*schema.Column{SubmissionSymptomsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "submission_symptoms_submissions_symptoms",
				Columns:    []*schema.Column{SubmissionSymptomsColumns[5]},
				RefColumns: []*schema.Column{SubmissionsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
	}

	// PredictionsColumns holds the columns for the "predictions" table.
	PredictionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "disease_id", Type: field.TypeInt},
		{Name: "disease_name", Type: field.TypeString, Size: 100},
		{Name: "confidence", Type: field.TypeFloat64},
		{Name: "rank", Type: field.TypeInt, Default: 1},
		{Name: "submission_id", Type: field.TypeString, Size: 36},
	}
	// PredictionsTable holds the schema information for the "predictions" table.
	PredictionsTable = &schema.Table{
		Name:       "predictions",
		Columns:    PredictionsColumns,
		PrimaryKey: []*schema.Column{PredictionsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "predictions_submissions_predictions",
				Columns:    []*schema.Column{PredictionsColumns[5]},
				RefColumns: []*schema.Column{SubmissionsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "prediction_disease_id_confidence",
				Columns: []*schema.Column{PredictionsColumns[1], PredictionsColumns[3]},
			},
		},
	}

	// ModelArtifactsColumns holds the columns for the "model_artifacts" table.
	ModelArtifactsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "key", Type: field.TypeString},
		{Name: "format_version", Type: field.TypeString},
		{Name: "payload", Type: field.TypeBytes},
		{Name: "created_at", Type: field.TypeTime},
	}
	// ModelArtifactsTable holds the schema information for the "model_artifacts" table.
	ModelArtifactsTable = &schema.Table{
		Name:       "model_artifacts",
		Columns:    ModelArtifactsColumns,
		PrimaryKey: []*schema.Column{ModelArtifactsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "modelartifact_key_created_at",
				Columns: []*schema.Column{ModelArtifactsColumns[1], ModelArtifactsColumns[4]},
			},
		},
	}

	// TrainingRunsColumns holds the columns for the "training_runs" table.
	TrainingRunsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "samples", Type: field.TypeInt},
		{Name: "diseases", Type: field.TypeInt},
		{Name: "symptoms", Type: field.TypeInt},
		{Name: "duration_ms", Type: field.TypeInt64},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "created_at", Type: field.TypeTime},
	}
	// TrainingRunsTable holds the schema information for the "training_runs" table.
	TrainingRunsTable = &schema.Table{
		Name:       "training_runs",
		Columns:    TrainingRunsColumns,
		PrimaryKey: []*schema.Column{TrainingRunsColumns[0]},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		DiseasesTable,
		SymptomsTable,
		DiseaseSymptomsTable,
		SubmissionsTable,
		SubmissionSymptomsTable,
		PredictionsTable,
		ModelArtifactsTable,
		TrainingRunsTable,
	}
)

func init() {
	DiseaseSymptomsTable.ForeignKeys[0].RefTable = DiseasesTable
	DiseaseSymptomsTable.ForeignKeys[1].RefTable = SymptomsTable
	SubmissionsTable.ForeignKeys[0].RefTable = DiseasesTable
	SubmissionSymptomsTable.ForeignKeys[0].RefTable = SubmissionsTable
	PredictionsTable.ForeignKeys[0].RefTable = SubmissionsTable
}
