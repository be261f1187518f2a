package rules

// Builtin returns the rule sets shipped with the service.
//
// Set "1" is the full tax code import sheet, set "2" the short rate sheet.
func Builtin() []*RuleSet {
	return []*RuleSet{
		mustRuleSet("1",
			ColumnRule{Name: "Mã thuế", Type: String()},
			ColumnRule{Name: "Tên thuế", Type: String()},
			ColumnRule{Name: "Phần trăm thuế", Type: Integer()},
			ColumnRule{Name: "test1", Type: Temporal()},
			ColumnRule{Name: "test2", Type: Integer()},
			ColumnRule{Name: "test3", Type: Integer()},
			ColumnRule{Name: "test4", Type: Integer()},
			ColumnRule{Name: "test5", Type: Integer()},
			ColumnRule{Name: "test6", Type: Integer()},
		),
		mustRuleSet("2",
			ColumnRule{Name: "Mã Thuế", Type: String()},
			ColumnRule{Name: "Phần Trăm Thuế", Type: Float()},
		),
	}
}

// Default returns a registry holding only the built-in rule sets.
func Default() *Registry {
	r, err := NewRegistry(Builtin()...)
	if err != nil {
		panic(err)
	}
	return r
}
