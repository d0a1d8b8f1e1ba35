package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/steveyegge/boards/internal/eventbus"
	"github.com/steveyegge/boards/internal/storage"
	"github.com/steveyegge/boards/internal/types"
)

// Project metadata: labels, components, saved filters and custom fields.
// Every row is scoped to one project and goes away with it.

type namedRow struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// requireName trims name and rejects blanks and names already used in the
// project by a different row.
func requireName(ctx context.Context, r storage.Reader, table storage.Table, projectID, name, selfID string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", types.NewValidationError("name", "name is required")
	}
	rows, err := storage.Query[namedRow](ctx, r, table, storage.By("projectId", projectID))
	if err != nil {
		return "", err
	}
	for _, row := range rows {
		if row.ID != selfID && strings.EqualFold(row.Name, name) {
			return "", types.NewValidationError("name", fmt.Sprintf("%q already exists in this project", name))
		}
	}
	return name, nil
}

func (s *Service) metadataChanged(ctx context.Context, id, projectID, actorID, summary string, tables []storage.Table) {
	s.notify(ctx, eventbus.Event{
		Type: eventbus.EventMetadataChanged, EntityID: id, ProjectID: projectID,
		Actor: actorID, Summary: summary,
	}, tables)
}

// renameOnIssues rewrites a label or component name on every issue of the
// project that carries it. An empty to strips the name.
func renameOnIssues(ctx context.Context, tx storage.Transaction, projectID, from, to string, get func(*types.Issue) *[]string) error {
	issues, err := storage.Query[types.Issue](ctx, tx, storage.TableIssues, storage.By("projectId", projectID))
	if err != nil {
		return err
	}
	for _, issue := range issues {
		names := get(issue)
		if !contains(*names, from) {
			continue
		}
		add := []string{}
		if to != "" {
			add = append(add, to)
		}
		*names = editSet(*names, nil, add, []string{from})
		if err := storage.Put(ctx, tx, storage.TableIssues, issue); err != nil {
			return err
		}
	}
	return nil
}

func issueLabels(i *types.Issue) *[]string     { return &i.Labels }
func issueComponents(i *types.Issue) *[]string { return &i.Components }

var (
	labelTables     = []storage.Table{storage.TableProjects, storage.TableLabels, storage.TableIssues}
	componentTables = []storage.Table{storage.TableProjects, storage.TableComponents, storage.TableIssues}
)

// CreateLabel adds a label to a project.
func (s *Service) CreateLabel(ctx context.Context, projectID, name, color, actorID string) (*types.Label, error) {
	var label *types.Label
	err := s.store.RunInTransaction(ctx, labelTables, func(tx storage.Transaction) error {
		if _, err := load[types.Project](ctx, tx, storage.TableProjects, "project", projectID); err != nil {
			return err
		}
		name, err := requireName(ctx, tx, storage.TableLabels, projectID, name, "")
		if err != nil {
			return err
		}
		label = &types.Label{ID: s.newID(), ProjectID: projectID, Name: name, Color: color}
		return storage.Put(ctx, tx, storage.TableLabels, label)
	})
	if err != nil {
		return nil, err
	}
	s.metadataChanged(ctx, label.ID, projectID, actorID, "label "+label.Name, labelTables)
	return label, nil
}

// UpdateLabel renames or recolours a label. A rename is applied to every
// issue of the project carrying the old name.
func (s *Service) UpdateLabel(ctx context.Context, id string, name, color *string, actorID string) (*types.Label, error) {
	var label *types.Label
	err := s.store.RunInTransaction(ctx, labelTables, func(tx storage.Transaction) error {
		var err error
		label, err = load[types.Label](ctx, tx, storage.TableLabels, "label", id)
		if err != nil {
			return err
		}
		if name != nil {
			newName, err := requireName(ctx, tx, storage.TableLabels, label.ProjectID, *name, id)
			if err != nil {
				return err
			}
			if newName != label.Name {
				if err := renameOnIssues(ctx, tx, label.ProjectID, label.Name, newName, issueLabels); err != nil {
					return err
				}
				label.Name = newName
			}
		}
		if color != nil {
			label.Color = *color
		}
		return storage.Put(ctx, tx, storage.TableLabels, label)
	})
	if err != nil {
		return nil, err
	}
	s.metadataChanged(ctx, label.ID, label.ProjectID, actorID, "label "+label.Name, labelTables)
	return label, nil
}

// DeleteLabel removes a label and strips it from the project's issues.
func (s *Service) DeleteLabel(ctx context.Context, id, actorID string) error {
	var label *types.Label
	err := s.store.RunInTransaction(ctx, labelTables, func(tx storage.Transaction) error {
		var err error
		label, err = load[types.Label](ctx, tx, storage.TableLabels, "label", id)
		if err != nil {
			return err
		}
		if err := renameOnIssues(ctx, tx, label.ProjectID, label.Name, "", issueLabels); err != nil {
			return err
		}
		return tx.Delete(ctx, storage.TableLabels, id)
	})
	if err != nil {
		return err
	}
	s.metadataChanged(ctx, id, label.ProjectID, actorID, "label deleted "+label.Name, labelTables)
	return nil
}

// ListLabels returns the labels of a project by name.
func (s *Service) ListLabels(ctx context.Context, projectID string) ([]*types.Label, error) {
	labels, err := storage.Query[types.Label](ctx, s.store, storage.TableLabels, storage.By("projectId", projectID))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(labels, func(i, j int) bool { return labels[i].Name < labels[j].Name })
	return labels, nil
}

// ComponentInput holds the fields of a component.
type ComponentInput struct {
	ProjectID   string `json:"projectId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	LeadID      string `json:"leadId,omitempty"`
}

// CreateComponent adds a component to a project.
func (s *Service) CreateComponent(ctx context.Context, in ComponentInput, actorID string) (*types.Component, error) {
	var component *types.Component
	err := s.store.RunInTransaction(ctx, componentTables, func(tx storage.Transaction) error {
		if _, err := load[types.Project](ctx, tx, storage.TableProjects, "project", in.ProjectID); err != nil {
			return err
		}
		name, err := requireName(ctx, tx, storage.TableComponents, in.ProjectID, in.Name, "")
		if err != nil {
			return err
		}
		component = &types.Component{
			ID: s.newID(), ProjectID: in.ProjectID, Name: name,
			Description: in.Description, LeadID: in.LeadID,
		}
		return storage.Put(ctx, tx, storage.TableComponents, component)
	})
	if err != nil {
		return nil, err
	}
	s.metadataChanged(ctx, component.ID, component.ProjectID, actorID, "component "+component.Name, componentTables)
	return component, nil
}

// UpdateComponent replaces name, description and lead of a component.
func (s *Service) UpdateComponent(ctx context.Context, id string, in ComponentInput, actorID string) (*types.Component, error) {
	var component *types.Component
	err := s.store.RunInTransaction(ctx, componentTables, func(tx storage.Transaction) error {
		var err error
		component, err = load[types.Component](ctx, tx, storage.TableComponents, "component", id)
		if err != nil {
			return err
		}
		name, err := requireName(ctx, tx, storage.TableComponents, component.ProjectID, in.Name, id)
		if err != nil {
			return err
		}
		if name != component.Name {
			if err := renameOnIssues(ctx, tx, component.ProjectID, component.Name, name, issueComponents); err != nil {
				return err
			}
		}
		component.Name = name
		component.Description = in.Description
		component.LeadID = in.LeadID
		return storage.Put(ctx, tx, storage.TableComponents, component)
	})
	if err != nil {
		return nil, err
	}
	s.metadataChanged(ctx, component.ID, component.ProjectID, actorID, "component "+component.Name, componentTables)
	return component, nil
}

// DeleteComponent removes a component and strips it from the project's issues.
func (s *Service) DeleteComponent(ctx context.Context, id, actorID string) error {
	var component *types.Component
	err := s.store.RunInTransaction(ctx, componentTables, func(tx storage.Transaction) error {
		var err error
		component, err = load[types.Component](ctx, tx, storage.TableComponents, "component", id)
		if err != nil {
			return err
		}
		if err := renameOnIssues(ctx, tx, component.ProjectID, component.Name, "", issueComponents); err != nil {
			return err
		}
		return tx.Delete(ctx, storage.TableComponents, id)
	})
	if err != nil {
		return err
	}
	s.metadataChanged(ctx, id, component.ProjectID, actorID, "component deleted "+component.Name, componentTables)
	return nil
}

// ListComponents returns the components of a project by name.
func (s *Service) ListComponents(ctx context.Context, projectID string) ([]*types.Component, error) {
	components, err := storage.Query[types.Component](ctx, s.store, storage.TableComponents, storage.By("projectId", projectID))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(components, func(i, j int) bool { return components[i].Name < components[j].Name })
	return components, nil
}

// Criteria keys understood by saved filters. A sprintId of Backlog selects
// issues without a sprint.
var filterKeys = []string{"status", "sprintId", "epicId", "parentId", "assigneeId", "type", "priority", "label", "component"}

// criteriaFilter converts saved filter criteria into an IssueFilter.
func criteriaFilter(projectID string, criteria map[string]string) (IssueFilter, error) {
	f := IssueFilter{ProjectID: projectID}
	for key, value := range criteria {
		switch key {
		case "status":
			f.Status = value
		case "sprintId":
			sprint := value
			if sprint == Backlog {
				sprint = ""
			}
			f.SprintID = &sprint
		case "epicId":
			f.EpicID = value
		case "parentId":
			f.ParentID = value
		case "assigneeId":
			f.AssigneeID = value
		case "type":
			f.Type = types.IssueType(value)
			if !f.Type.IsValid() {
				return f, types.NewValidationError("criteria", fmt.Sprintf("invalid issue type: %s", value))
			}
		case "priority":
			f.Priority = types.Priority(value)
			if !f.Priority.IsValid() {
				return f, types.NewValidationError("criteria", fmt.Sprintf("invalid priority: %s", value))
			}
		case "label":
			f.Label = value
		case "component":
			f.Component = value
		default:
			return f, types.NewValidationError("criteria",
				fmt.Sprintf("unknown criterion %q (want one of %s)", key, strings.Join(filterKeys, ", ")))
		}
	}
	return f, nil
}

var filterTables = []storage.Table{storage.TableProjects, storage.TableFilters}

// SaveFilter stores a named issue query for a project.
func (s *Service) SaveFilter(ctx context.Context, projectID, name string, criteria map[string]string, actorID string) (*types.Filter, error) {
	if _, err := criteriaFilter(projectID, criteria); err != nil {
		return nil, err
	}
	var filter *types.Filter
	err := s.store.RunInTransaction(ctx, filterTables, func(tx storage.Transaction) error {
		if _, err := load[types.Project](ctx, tx, storage.TableProjects, "project", projectID); err != nil {
			return err
		}
		name, err := requireName(ctx, tx, storage.TableFilters, projectID, name, "")
		if err != nil {
			return err
		}
		if criteria == nil {
			criteria = map[string]string{}
		}
		filter = &types.Filter{
			ID: s.newID(), ProjectID: projectID, Name: name, OwnerID: actorID,
			Criteria: criteria, CreatedAt: s.clock(),
		}
		return storage.Put(ctx, tx, storage.TableFilters, filter)
	})
	if err != nil {
		return nil, err
	}
	s.metadataChanged(ctx, filter.ID, projectID, actorID, "filter "+filter.Name, filterTables)
	return filter, nil
}

// UpdateFilter renames a saved filter and, when criteria is non-nil,
// replaces its criteria.
func (s *Service) UpdateFilter(ctx context.Context, id string, name *string, criteria map[string]string, actorID string) (*types.Filter, error) {
	var filter *types.Filter
	err := s.store.RunInTransaction(ctx, filterTables, func(tx storage.Transaction) error {
		var err error
		filter, err = load[types.Filter](ctx, tx, storage.TableFilters, "filter", id)
		if err != nil {
			return err
		}
		if name != nil {
			if filter.Name, err = requireName(ctx, tx, storage.TableFilters, filter.ProjectID, *name, id); err != nil {
				return err
			}
		}
		if criteria != nil {
			if _, err := criteriaFilter(filter.ProjectID, criteria); err != nil {
				return err
			}
			filter.Criteria = criteria
		}
		return storage.Put(ctx, tx, storage.TableFilters, filter)
	})
	if err != nil {
		return nil, err
	}
	s.metadataChanged(ctx, id, filter.ProjectID, actorID, "filter "+filter.Name, filterTables)
	return filter, nil
}

// DeleteFilter removes a saved filter.
func (s *Service) DeleteFilter(ctx context.Context, id, actorID string) error {
	var filter *types.Filter
	err := s.store.RunInTransaction(ctx, filterTables, func(tx storage.Transaction) error {
		var err error
		filter, err = load[types.Filter](ctx, tx, storage.TableFilters, "filter", id)
		if err != nil {
			return err
		}
		return tx.Delete(ctx, storage.TableFilters, id)
	})
	if err != nil {
		return err
	}
	s.metadataChanged(ctx, id, filter.ProjectID, actorID, "filter deleted "+filter.Name, filterTables)
	return nil
}

// ListFilters returns the saved filters of a project.
func (s *Service) ListFilters(ctx context.Context, projectID string) ([]*types.Filter, error) {
	return storage.Query[types.Filter](ctx, s.store, storage.TableFilters, storage.By("projectId", projectID))
}

// ApplyFilter runs a saved filter.
func (s *Service) ApplyFilter(ctx context.Context, id string) ([]*types.Issue, error) {
	filter, err := load[types.Filter](ctx, s.store, storage.TableFilters, "filter", id)
	if err != nil {
		return nil, err
	}
	f, err := criteriaFilter(filter.ProjectID, filter.Criteria)
	if err != nil {
		return nil, err
	}
	return s.ListIssues(ctx, f)
}

// CustomFieldInput holds the definition of a custom field.
type CustomFieldInput struct {
	ProjectID string                `json:"projectId"`
	Name      string                `json:"name"`
	FieldType types.CustomFieldType `json:"fieldType"`
	Options   []string              `json:"options,omitempty"`
	Required  bool                  `json:"required"`
}

func (in CustomFieldInput) validate() ([]string, error) {
	if !in.FieldType.IsValid() {
		return nil, types.NewValidationError("fieldType", fmt.Sprintf("invalid field type: %s", in.FieldType))
	}
	options := normalizeSet(in.Options)
	switch {
	case in.FieldType == types.FieldSelect && len(options) == 0:
		return nil, types.NewValidationError("options", "select fields need at least one option")
	case in.FieldType != types.FieldSelect && len(options) > 0:
		return nil, types.NewValidationError("options", "only select fields take options")
	}
	if len(options) == 0 {
		options = nil
	}
	return options, nil
}

var customFieldTables = []storage.Table{storage.TableProjects, storage.TableCustomFields}

// CreateCustomField defines a custom field for a project.
func (s *Service) CreateCustomField(ctx context.Context, in CustomFieldInput, actorID string) (*types.CustomField, error) {
	options, err := in.validate()
	if err != nil {
		return nil, err
	}
	var field *types.CustomField
	err = s.store.RunInTransaction(ctx, customFieldTables, func(tx storage.Transaction) error {
		if _, err := load[types.Project](ctx, tx, storage.TableProjects, "project", in.ProjectID); err != nil {
			return err
		}
		name, err := requireName(ctx, tx, storage.TableCustomFields, in.ProjectID, in.Name, "")
		if err != nil {
			return err
		}
		field = &types.CustomField{
			ID: s.newID(), ProjectID: in.ProjectID, Name: name,
			FieldType: in.FieldType, Options: options, Required: in.Required,
		}
		return storage.Put(ctx, tx, storage.TableCustomFields, field)
	})
	if err != nil {
		return nil, err
	}
	s.metadataChanged(ctx, field.ID, field.ProjectID, actorID, "custom field "+field.Name, customFieldTables)
	return field, nil
}

// UpdateCustomField replaces a custom field definition. The project cannot
// change.
func (s *Service) UpdateCustomField(ctx context.Context, id string, in CustomFieldInput, actorID string) (*types.CustomField, error) {
	options, err := in.validate()
	if err != nil {
		return nil, err
	}
	var field *types.CustomField
	err = s.store.RunInTransaction(ctx, customFieldTables, func(tx storage.Transaction) error {
		field, err = load[types.CustomField](ctx, tx, storage.TableCustomFields, "custom field", id)
		if err != nil {
			return err
		}
		name, err := requireName(ctx, tx, storage.TableCustomFields, field.ProjectID, in.Name, id)
		if err != nil {
			return err
		}
		field.Name = name
		field.FieldType = in.FieldType
		field.Options = options
		field.Required = in.Required
		return storage.Put(ctx, tx, storage.TableCustomFields, field)
	})
	if err != nil {
		return nil, err
	}
	s.metadataChanged(ctx, field.ID, field.ProjectID, actorID, "custom field "+field.Name, customFieldTables)
	return field, nil
}

// DeleteCustomField removes a custom field definition.
func (s *Service) DeleteCustomField(ctx context.Context, id, actorID string) error {
	var field *types.CustomField
	err := s.store.RunInTransaction(ctx, customFieldTables, func(tx storage.Transaction) error {
		var err error
		field, err = load[types.CustomField](ctx, tx, storage.TableCustomFields, "custom field", id)
		if err != nil {
			return err
		}
		return tx.Delete(ctx, storage.TableCustomFields, id)
	})
	if err != nil {
		return err
	}
	s.metadataChanged(ctx, id, field.ProjectID, actorID, "custom field deleted "+field.Name, customFieldTables)
	return nil
}

// ListCustomFields returns the custom fields of a project.
func (s *Service) ListCustomFields(ctx context.Context, projectID string) ([]*types.CustomField, error) {
	return storage.Query[types.CustomField](ctx, s.store, storage.TableCustomFields, storage.By("projectId", projectID))
}
