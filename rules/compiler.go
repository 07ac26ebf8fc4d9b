package rules

import "fmt"

// CompileProfile generates the rule set for a profile.
// Conditions are built with fmt.Sprintf from validated values, so the
// compiler never generates invalid expr.
func CompileProfile(p Profile) []*Rule {
	p.Validate()
	var rules []*Rule

	// --- Build order ---

	rules = append(rules, &Rule{
		Name:         "select-probe",
		Priority:     300,
		Phase:        PhaseBuild,
		ConditionSrc: fmt.Sprintf(`BuildStep == %q && HasUnit("probe")`, BuildSelectProbe),
		Action:       ActionSelectProbe,
	})

	rules = append(rules, &Rule{
		Name:         "build-pylon",
		Priority:     200,
		Phase:        PhaseBuild,
		ConditionSrc: fmt.Sprintf(`BuildStep == %q && Available("build_pylon") && HasUnit("nexus")`, BuildPylon),
		Action:       ActionBuildPylon,
	})

	if p.Gateway {
		rules = append(rules, &Rule{
			Name:         "build-gateway",
			Priority:     100,
			Phase:        PhaseBuild,
			ConditionSrc: fmt.Sprintf(`BuildStep == %q && Available("build_gateway") && HasUnit("pylon")`, BuildGateway),
			Action:       ActionBuildGateway,
		})
	}

	// --- Macro (supply-aware production) ---
	// Above the reserve threshold the nexus trains probes; at or below it a
	// probe lays down another pylon.

	if p.Macro {
		rules = append(rules, &Rule{
			Name:         "macro-train-probe",
			Priority:     400,
			Phase:        PhaseMacro,
			ConditionSrc: fmt.Sprintf(`SupplyReserve() > ReserveThreshold && MacroStep == %q && Available("train_probe")`, MacroNexusSelected),
			Action:       ActionTrainProbe,
		})

		rules = append(rules, &Rule{
			Name:         "macro-select-nexus",
			Priority:     300,
			Phase:        PhaseMacro,
			ConditionSrc: fmt.Sprintf(`SupplyReserve() > ReserveThreshold && MacroStep != %q && HasUnit("nexus")`, MacroNexusSelected),
			Action:       ActionSelectNexus,
		})

		rules = append(rules, &Rule{
			Name:         "macro-build-pylon",
			Priority:     200,
			Phase:        PhaseMacro,
			ConditionSrc: fmt.Sprintf(`SupplyReserve() <= ReserveThreshold && MacroStep == %q && Available("build_pylon") && HasUnit("nexus")`, MacroProbeSelected),
			Action:       ActionBuildSupplyPylon,
		})

		rules = append(rules, &Rule{
			Name:         "macro-select-probe",
			Priority:     100,
			Phase:        PhaseMacro,
			ConditionSrc: fmt.Sprintf(`SupplyReserve() <= ReserveThreshold && MacroStep != %q && HasUnit("probe")`, MacroProbeSelected),
			Action:       ActionSelectMacroProbe,
		})
	}

	// Micro has no rules; its window always yields a no-op.

	return rules
}
