package memrepo

import "github.com/JonMunkholm/labelbook/internal/metadata"

// Identifiers used by Sample.
const (
	SampleAccountID   = "11111111-1111-1111-1111-111111111111"
	SampleContactID   = "11111111-2222-1111-1111-111111111111"
	SampleFormID      = "22222222-2222-2222-2222-222222222222"
	SampleDashboardID = "44444444-4444-4444-4444-444444444444"
	SampleSiteMapID   = "55555555-5555-5555-5555-555555555555"
	SampleTabID       = "aaaaaaaa-0000-0000-0000-000000000001"
	SampleSectionID   = "aaaaaaaa-0000-0000-0000-000000000002"
	SampleCellID      = "aaaaaaaa-0000-0000-0000-000000000003"
)

// labels builds a label set from qualifier, language, text triples.
func labels(triples ...any) metadata.LabelSet {
	var set metadata.LabelSet
	for i := 0; i+2 < len(triples); i += 3 {
		set.Set(triples[i].(string), triples[i+1].(int), triples[i+2].(string))
	}
	return set
}

const sampleFormXML = `<form>
  <tabs>
    <tab name="general" id="{aaaaaaaa-0000-0000-0000-000000000001}">
      <labels>
        <label description="General" languagecode="1033"/>
        <label description="Général" languagecode="1036"/>
      </labels>
      <columns>
        <column width="100%">
          <sections>
            <section name="account_information" id="{aaaaaaaa-0000-0000-0000-000000000002}">
              <labels>
                <label description="Account Information" languagecode="1033"/>
                <label description="Informations sur le compte" languagecode="1036"/>
              </labels>
              <rows>
                <row>
                  <cell id="{aaaaaaaa-0000-0000-0000-000000000003}">
                    <labels>
                      <label description="Account Name" languagecode="1033"/>
                      <label description="Nom du compte" languagecode="1036"/>
                    </labels>
                    <control id="name" datafieldname="name"/>
                  </cell>
                </row>
              </rows>
            </section>
          </sections>
        </column>
      </columns>
    </tab>
  </tabs>
</form>`

const sampleDashboardXML = `<form>
  <tabs>
    <tab name="overview" id="{dddddddd-0000-0000-0000-000000000001}">
      <labels>
        <label description="Overview" languagecode="1033"/>
      </labels>
      <columns>
        <column width="100%">
          <sections>
            <section name="charts" id="{dddddddd-0000-0000-0000-000000000002}">
              <labels>
                <label description="Charts" languagecode="1033"/>
                <label description="Graphiques" languagecode="1036"/>
              </labels>
            </section>
          </sections>
        </column>
      </columns>
    </tab>
  </tabs>
</form>`

const sampleSiteMapXML = `<SiteMap>
  <Area Id="sales">
    <Titles>
      <Title LCID="1033" Title="Sales"/>
      <Title LCID="1036" Title="Ventes"/>
    </Titles>
    <Descriptions>
      <Description LCID="1033" Description="Sales area"/>
    </Descriptions>
    <Group Id="customers">
      <Titles>
        <Title LCID="1033" Title="Customers"/>
      </Titles>
      <SubArea Id="nav_accounts" Entity="account">
        <Titles>
          <Title LCID="1033" Title="Accounts"/>
          <Title LCID="1036" Title="Comptes"/>
        </Titles>
      </SubArea>
    </Group>
  </Area>
</SiteMap>`

// Sample returns a small English/French repository covering every sheet
// kind.
func Sample() *Data {
	return &Data{
		BaseLanguage: 1033,
		UserLanguage: 1033,
		Languages:    []int{1033, 1036},
		Entities: []*metadata.Table{
			{
				ID:          SampleContactID,
				LogicalName: "contact",
				Labels: labels(
					metadata.DisplayName, 1033, "Contact",
					metadata.DisplayName, 1036, "Contact",
					metadata.DisplayCollectionName, 1033, "Contacts",
					metadata.Description, 1033, "Person with whom a business unit has a relationship",
				),
			},
			{
				ID:          SampleAccountID,
				LogicalName: "account",
				Labels: labels(
					metadata.DisplayName, 1033, "Account",
					metadata.DisplayName, 1036, "Compte",
					metadata.DisplayCollectionName, 1033, "Accounts",
					metadata.DisplayCollectionName, 1036, "Comptes",
					metadata.Description, 1033, "Business that represents a customer",
				),
				Fields: []*metadata.Field{
					{
						ID: "66666666-0000-0000-0000-000000000001", Entity: "account", LogicalName: "name", AttributeType: "String",
						Labels: labels(
							metadata.DisplayName, 1033, "Account Name",
							metadata.DisplayName, 1036, "Nom du compte",
							metadata.Description, 1033, "Type the company name",
						),
					},
					{
						ID: "66666666-0000-0000-0000-000000000002", Entity: "account", LogicalName: "industrycode", AttributeType: "Picklist",
						Labels: labels(metadata.DisplayName, 1033, "Industry", metadata.DisplayName, 1036, "Secteur"),
						Options: []*metadata.OptionEntry{
							{Value: 1, Labels: labels(metadata.Label, 1033, "Accounting", metadata.Label, 1036, "Comptabilité")},
							{Value: 2, Labels: labels(metadata.Label, 1033, "Agriculture")},
						},
					},
					{
						ID: "66666666-0000-0000-0000-000000000003", Entity: "account", LogicalName: "donotemail", AttributeType: "Boolean",
						Labels: labels(metadata.DisplayName, 1033, "Do not allow Emails"),
						Options: []*metadata.OptionEntry{
							{Value: 0, Labels: labels(metadata.Label, 1033, "Allow", metadata.Label, 1036, "Autoriser")},
							{Value: 1, Labels: labels(metadata.Label, 1033, "Do Not Allow")},
						},
					},
					{
						ID: "66666666-0000-0000-0000-000000000004", Entity: "account", LogicalName: "customercategory", AttributeType: "Picklist",
						OptionSetName: "customercategory",
						Labels:        labels(metadata.DisplayName, 1033, "Category"),
					},
				},
				Relationships: []*metadata.Relationship{
					{
						ID: "77777777-0000-0000-0000-000000000001", SchemaName: "account_primary_contact", Kind: metadata.OneToMany,
						Entity: "account", RelatedEntity: "contact",
						Labels: labels(metadata.Label, 1033, "Contacts"),
					},
					{
						ID: "77777777-0000-0000-0000-000000000002", SchemaName: "accountleads_association", Kind: metadata.ManyToMany,
						Entity: "account", IntersectEntity: "accountleads",
						Labels: labels(metadata.Label, 1033, "Leads", metadata.Label, 1036, "Prospects"),
					},
				},
			},
		},
		OptionSets: []*metadata.OptionSet{
			{
				ID: "88888888-0000-0000-0000-000000000001", Name: "customercategory", Type: "Picklist",
				Labels: labels(metadata.DisplayName, 1033, "Category"),
				Options: []*metadata.OptionEntry{
					{Value: 1, Labels: labels(metadata.Label, 1033, "Preferred Customer", metadata.Label, 1036, "Client privilégié")},
					{Value: 2, Labels: labels(metadata.Label, 1033, "Standard")},
				},
			},
			{
				ID: "88888888-0000-0000-0000-000000000002", Name: "unused_set", Type: "Picklist",
				Labels: labels(metadata.DisplayName, 1033, "Unused"),
			},
		},
		Views: []*metadata.View{
			{
				ID: "99999999-0000-0000-0000-000000000001", Entity: "account", QueryType: 0,
				Labels: labels(
					metadata.DisplayName, 1033, "Active Accounts",
					metadata.DisplayName, 1036, "Comptes actifs",
					metadata.Description, 1033, "Shows active accounts",
				),
			},
		},
		Charts: []*metadata.Chart{
			{
				ID: "99999999-0000-0000-0000-000000000002", Entity: "account",
				Labels: labels(metadata.DisplayName, 1033, "Accounts by Industry"),
			},
		},
		Forms: []*FormRecord{
			{
				ID: SampleFormID, UniqueID: "33333333-3333-3333-3333-333333333333", Entity: "account", FormType: "Main",
				Labels: labels(metadata.DisplayName, 1033, "Account", metadata.DisplayName, 1036, "Compte"),
				XML:    sampleFormXML,
			},
			{
				ID: SampleDashboardID, UniqueID: "44444444-0000-4444-4444-444444444444", Dashboard: true,
				Labels: labels(metadata.DisplayName, 1033, "Sales Overview"),
				XML:    sampleDashboardXML,
			},
		},
		SiteMaps: []*metadata.SiteMap{
			{ID: SampleSiteMapID, Name: "Sales Hub", XML: sampleSiteMapXML},
		},
	}
}
