package entities

// PayloadIndex resolves the payload's string cross-references into direct
// lookups. It is built once at validation time so downstream stages never
// re-scan the payload slices.
type PayloadIndex struct {
	Nodes         map[NodeID]*Node
	Products      map[ProductID]*Product
	Presentations map[ProductID]map[PresentationID]*Presentation
	Visits        map[VisitID]*VisitDef
	Regimens      map[RegimenID]*Regimen
	DispenseRules map[DispenseRuleID]*DispenseRule
}

// BuildIndex indexes every entity of the payload by its identifier.
// Duplicate identifiers keep the first occurrence; duplicates are reported
// by validation, not here.
func BuildIndex(p *CanonicalPayload) *PayloadIndex {
	idx := &PayloadIndex{
		Nodes:         make(map[NodeID]*Node),
		Products:      make(map[ProductID]*Product),
		Presentations: make(map[ProductID]map[PresentationID]*Presentation),
		Visits:        make(map[VisitID]*VisitDef),
		Regimens:      make(map[RegimenID]*Regimen),
		DispenseRules: make(map[DispenseRuleID]*DispenseRule),
	}

	for i := range p.NetworkNodes {
		n := &p.NetworkNodes[i]
		if _, ok := idx.Nodes[n.NodeID]; !ok {
			idx.Nodes[n.NodeID] = n
		}
	}
	for i := range p.Products {
		prod := &p.Products[i]
		if _, ok := idx.Products[prod.ProductID]; ok {
			continue
		}
		idx.Products[prod.ProductID] = prod
		byPres := make(map[PresentationID]*Presentation, len(prod.Presentations))
		for j := range prod.Presentations {
			pres := &prod.Presentations[j]
			if _, ok := byPres[pres.PresentationID]; !ok {
				byPres[pres.PresentationID] = pres
			}
		}
		idx.Presentations[prod.ProductID] = byPres
	}
	if p.StudyDesign != nil {
		for i := range p.StudyDesign.Visits {
			v := &p.StudyDesign.Visits[i]
			if _, ok := idx.Visits[v.VisitID]; !ok {
				idx.Visits[v.VisitID] = v
			}
		}
	}
	for i := range p.Regimens {
		r := &p.Regimens[i]
		if _, ok := idx.Regimens[r.RegimenID]; !ok {
			idx.Regimens[r.RegimenID] = r
		}
	}
	for i := range p.DispenseRules {
		dr := &p.DispenseRules[i]
		if _, ok := idx.DispenseRules[dr.DispenseRuleID]; !ok {
			idx.DispenseRules[dr.DispenseRuleID] = dr
		}
	}
	return idx
}

// Presentation resolves a product/presentation pair, nil when either side is
// unknown
func (idx *PayloadIndex) Presentation(product ProductID, presentation PresentationID) *Presentation {
	byPres, ok := idx.Presentations[product]
	if !ok {
		return nil
	}
	return byPres[presentation]
}
