package rules

// Role names referenced by the default tables and the drug vocabulary.
const (
	RoleGenericClass = "generic-class"
	RoleMHTherapy    = "mh-therapy"
)

// Default returns the built-in rule tables.
func Default() Tables {
	return Tables{
		RiskCues: []string{
			"adverse", "adverse event", "adverse events", "arrhythmia", "arrhythmias",
			"avoid", "avoided", "cardiac arrest", "complication", "complications",
			"contraindicated", "contraindication", "contraindications", "caution",
			"danger", "deterioration", "do not use", "exacerbate", "exacerbated",
			"fatal", "harmful", "hazard", "hyperkalemia", "hyperkalaemia",
			"life-threatening", "malignant hyperthermia", "mh", "precaution",
			"precipitate", "risk", "risk of", "rhabdomyolysis", "serious adverse",
			"should not", "side effect", "side effects", "toxic", "toxicity",
			"trigger", "triggered", "triggering", "unsafe", "worsened",
		},
		SafetyCues: []string{
			"acceptable safety", "beneficial", "did not cause", "effective",
			"generally safe", "no adverse event", "no adverse events",
			"no complications", "no major complications", "no reported complications",
			"no significant adverse", "recommended", "safe", "safe option", "safely",
			"safety", "successfully", "tolerated well", "well tolerated",
			"well-tolerated", "without complications", "ameliorated", "ameliorate",
			"prevent", "preventative", "indicated", "efficacious", "efficacy",
		},
		NegationPatterns: []string{
			"no {}", "not {}", "without {}", "absence of {}", "does not cause {}",
			"did not cause {}", "doesn't cause {}", "didn't cause {}",
			"not associated with {}", "no evidence of {}",
		},
		SevereAlways: []string{
			"arrhythmia", "atrial fibrillation", "ventricular arrhythmia",
			"ventricular tachycardia", "torsades de pointes", "ventricular fibrillation",
			"cardiac arrest", "asystole", "pulseless electrical activity",
			"hemodynamic collapse", "cardiovascular collapse", "anaphylaxis",
			"anaphylactic shock", "refractory hypotension", "refractory bradycardia",
		},
		SevereConditional: []string{
			"status epilepticus", "seizure", "seizures", "convulsion", "convulsions",
		},
		SevereQualifiers: []string{
			"unexpected", "unanticipated", "unforeseen", "severe", "sudden",
			"prolonged", "refractory", "life-threatening", "catastrophic", "critical",
		},
		SevereIgnored: []string{
			"respiratory depression", "mild hypotension", "transient hypotension",
			"expected hypotension", "sedation", "drowsiness",
		},
		TherapyRoles: []LabelTerms{
			{Label: "rescue", Terms: []string{"rescue therapy", "rescue treatment", "used as rescue", "served as rescue"}},
			{Label: "maintenance", Terms: []string{"maintenance infusion", "maintenance therapy"}},
			{Label: "induction", Terms: []string{"induction agent", "used for induction", "induction dose"}},
			{Label: "prophylaxis", Terms: []string{"prophylaxis", "prophylactic"}},
			{Label: "adjunct", Terms: []string{"adjunct therapy", "adjunctive"}},
			{Label: "alternative", Terms: []string{"alternative to", "used instead of"}},
		},
		MechanismAlerts: []LabelTerms{
			{Label: "pseudocholinesterase deficiency", Terms: []string{"pseudocholinesterase deficiency", "butyrylcholinesterase deficiency"}},
			{Label: "ryanodine receptor dysfunction", Terms: []string{"ryr1 mutation", "ryanodine receptor"}},
			{Label: "mitochondrial toxicity", Terms: []string{"mitochondrial toxicity", "mitochondrial dysfunction"}},
			{Label: "sodium channelopathy", Terms: []string{"scn1a mutation", "nav1.1", "sodium channelopathy"}},
			{Label: "malignant hyperthermia susceptibility", Terms: []string{"malignant hyperthermia susceptibility", "mh-susceptible"}},
		},
		RoleOverrides: []RoleOverride{
			{
				Role:           RoleMHTherapy,
				ConditionTerms: []string{"malignant hyperthermia", "mh"},
				Keywords: []string{
					"treat", "treated", "treating", "treatment", "therapy", "therapeutic",
					"manage", "managed", "managing", "management", "administer",
					"administered", "administering", "administration", "give", "given",
					"giving", "dose", "dosing", "bolus", "reversal", "reverse", "reverses",
					"reversed", "responded", "response", "mitigates", "mitigated",
					"mitigate", "ameliorates", "ameliorated", "ameliorate", "rescue",
					"only effective", "first-line", "should be available", "required",
					"requires", "requirement", "must have", "availability", "prompt",
					"immediate", "loading", "infusion", "stocked",
				},
				Exclusions: []string{
					"contraindicated", "contraindication", "should not", "do not use",
					"avoid", "toxicity", "toxic", "hepatotoxic", "hepatotoxicity",
					"adverse event", "adverse events", "serious adverse", "black box",
					"risk of hepatotoxicity",
				},
			},
		},
	}
}
