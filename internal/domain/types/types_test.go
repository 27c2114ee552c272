package types_test

import (
	"encoding/json"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	types "github.com/samwel-gachiri/digital-sales-agent/internal/domain/types"
)

func TestLeadEntry(t *testing.T) {
	Convey("Given a lead entry", t, func() {
		entry := types.LeadEntry{Rank: 1, ProspectID: "prospect_1", Overall: 8.25, Category: "hot"}

		Convey("When it is encoded", func() {
			data, err := json.Marshal(entry)
			So(err, ShouldBeNil)

			Convey("Then it uses the API field names", func() {
				So(string(data), ShouldEqual, `{"rank":1,"prospect_id":"prospect_1","overall":8.25,"category":"hot"}`)
			})
		})
	})
}

func TestAnalytics(t *testing.T) {
	Convey("Given pipeline analytics", t, func() {
		a := types.Analytics{
			TotalProspects:   2,
			QualifiedLeads:   2,
			HotLeads:         1,
			ConversionRate:   100,
			PipelineStages:   map[string]int{"qualified": 1},
			AverageLeadScore: 7.9,
		}

		Convey("When it is encoded", func() {
			data, err := json.Marshal(a)
			So(err, ShouldBeNil)

			Convey("Then it uses snake case keys", func() {
				So(string(data), ShouldContainSubstring, `"qualified_leads":2`)
				So(string(data), ShouldContainSubstring, `"pipeline_stages":{"qualified":1}`)
				So(string(data), ShouldContainSubstring, `"average_lead_score":7.9`)
			})
		})
	})
}
