package handlers

import (
	"net/url"
	"strings"

	"catalog-admin-service/internal/hierarchy"
	"catalog-admin-service/internal/models"
	"catalog-admin-service/internal/storage"

	"github.com/gin-gonic/gin"
)

const avatarDir = "avatars"

// Presenter renders models with their computed attributes
type Presenter struct {
	AppURL string
	Disk   *storage.Disk
}

func NewPresenter(appURL string, disk *storage.Disk) *Presenter {
	return &Presenter{AppURL: strings.TrimRight(appURL, "/"), Disk: disk}
}

func (p *Presenter) asset(name string) string {
	return p.AppURL + "/" + strings.TrimPrefix(name, "/")
}

// fileURL leaves absolute URLs alone and maps stored paths to the public disk.
func (p *Presenter) fileURL(value *string) *string {
	if value == nil || *value == "" {
		return nil
	}
	if strings.HasPrefix(*value, "http://") || strings.HasPrefix(*value, "https://") {
		return value
	}
	u := p.Disk.URL(*value)
	return &u
}

// AvatarURL falls back to a generated initials avatar.
func (p *Presenter) AvatarURL(user *models.User) string {
	if user.Avatar != nil && *user.Avatar != "" {
		return p.Disk.URL(avatarDir + "/" + *user.Avatar)
	}
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(user.Name) + "&color=7F9CF5&background=EBF4FF"
}

// User renders every public attribute; hashes are never part of the map.
func (p *Presenter) User(user *models.User) gin.H {
	return gin.H{
		"id":                user.ID,
		"name":              user.Name,
		"email":             user.Email,
		"email_verified_at": user.EmailVerifiedAt,
		"is_admin":          user.IsAdmin,
		"is_active":         user.IsActive,
		"phone":             user.Phone,
		"avatar":            user.Avatar,
		"avatar_url":        p.AvatarURL(user),
		"cpf_cnpj":          user.CPFCNPJ,
		"birth_date":        user.BirthDateString(),
		"gender":            user.Gender,
		"street":            user.Street,
		"number":            user.Number,
		"complement":        user.Complement,
		"neighborhood":      user.Neighborhood,
		"city":              user.City,
		"state":             user.State,
		"zip_code":          user.ZipCode,
		"last_login_at":     user.LastLoginAt,
		"last_login_ip":     user.LastLoginIP,
		"created_at":        user.CreatedAt,
		"updated_at":        user.UpdatedAt,
	}
}

// UserOnly renders the listed attributes of user.
func (p *Presenter) UserOnly(user *models.User, keys ...string) gin.H {
	all := p.User(user)
	out := make(gin.H, len(keys))
	for _, key := range keys {
		out[key] = all[key]
	}
	return out
}

// Crumb is one breadcrumb entry with its storefront link
type Crumb struct {
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	URL     string `json:"url"`
	Current bool   `json:"current"`
}

// CategoryView is a category with its computed attributes
type CategoryView struct {
	models.Category
	ImageURL       string           `json:"image_url"`
	BannerImageURL string           `json:"banner_image_url"`
	IconURL        *string          `json:"icon_url"`
	URL            string           `json:"url"`
	EditURL        string           `json:"edit_url"`
	StatusLabel    string           `json:"status_label"`
	StatusColor    string           `json:"status_color"`
	LayoutLabel    string           `json:"display_layout_label"`
	Root           bool             `json:"is_root"`
	HasChildren    bool             `json:"has_children"`
	HasProducts    bool             `json:"has_products"`
	State          models.Lifecycle `json:"lifecycle"`
	Depth          *int             `json:"depth,omitempty"`
	FullName       string           `json:"full_name,omitempty"`
	Breadcrumb     []Crumb          `json:"breadcrumb,omitempty"`
	Children       []CategoryView   `json:"children,omitempty"`
}

func statusColor(status models.CategoryStatus) string {
	switch status {
	case models.CategoryStatusActive:
		return "success"
	case models.CategoryStatusInactive:
		return "warning"
	case models.CategoryStatusArchived:
		return "danger"
	default:
		return "secondary"
	}
}

func statusLabel(status models.CategoryStatus) string {
	if label, ok := models.CategoryStatusOptions[status]; ok {
		return label
	}
	return string(status)
}

func (p *Presenter) categoryURL(s string) string {
	return p.AppURL + "/categories/" + s
}

// Category renders category; tree, when non-nil, supplies the hierarchy attributes.
func (p *Presenter) Category(category *models.Category, tree *hierarchy.Tree) CategoryView {
	view := CategoryView{
		Category:    *category,
		IconURL:     p.fileURL(category.Icon),
		URL:         p.categoryURL(category.Slug),
		EditURL:     p.AppURL + "/admin/categories/" + category.ID.String() + "/edit",
		StatusLabel: statusLabel(category.Status),
		StatusColor: statusColor(category.Status),
		LayoutLabel: models.DisplayLayoutOptions[category.DisplayLayout],
		Root:        category.IsRoot(),
		HasProducts: category.ProductsCount > 0,
		State:       category.Lifecycle(),
	}

	if image := p.fileURL(category.Image); image != nil {
		view.ImageURL = *image
	} else {
		view.ImageURL = p.asset(models.DefaultCategoryImage)
	}
	if banner := p.fileURL(category.BannerImage); banner != nil {
		view.BannerImageURL = *banner
	} else {
		view.BannerImageURL = view.ImageURL
	}

	if tree == nil {
		return view
	}
	view.HasChildren = tree.HasChildren(category.ID)
	if depth, err := tree.Depth(category.ID); err == nil {
		view.Depth = &depth
	}
	if name, err := tree.FullName(category.ID); err == nil {
		view.FullName = name
	}
	if crumbs, err := tree.Breadcrumb(category.ID); err == nil {
		view.Breadcrumb = p.Crumbs(crumbs)
	}
	return view
}

func (p *Presenter) Categories(categories []models.Category, tree *hierarchy.Tree) []CategoryView {
	views := make([]CategoryView, 0, len(categories))
	for i := range categories {
		views = append(views, p.Category(&categories[i], tree))
	}
	return views
}

func (p *Presenter) Crumbs(crumbs []hierarchy.Crumb) []Crumb {
	out := make([]Crumb, 0, len(crumbs))
	for _, crumb := range crumbs {
		out = append(out, Crumb{
			Name:    crumb.Name,
			Slug:    crumb.Slug,
			URL:     p.categoryURL(crumb.Slug),
			Current: crumb.Current,
		})
	}
	return out
}

// TreeNode is a lightweight node of the nested category tree
type TreeNode struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Slug      string     `json:"slug"`
	ParentID  *string    `json:"parent_id"`
	SortOrder int        `json:"sort_order"`
	Depth     int        `json:"depth"`
	URL       string     `json:"url"`
	Children  []TreeNode `json:"children"`
}

// Tree nests the forest below its roots
func (p *Presenter) Tree(tree *hierarchy.Tree) []TreeNode {
	var build func(nodes []hierarchy.Node, depth int) []TreeNode
	build = func(nodes []hierarchy.Node, depth int) []TreeNode {
		out := make([]TreeNode, 0, len(nodes))
		for _, n := range nodes {
			node := TreeNode{
				ID:        n.ID.String(),
				Name:      n.Name,
				Slug:      n.Slug,
				SortOrder: n.SortOrder,
				Depth:     depth,
				URL:       p.categoryURL(n.Slug),
				Children:  build(tree.Children(n.ID), depth+1),
			}
			if n.ParentID != nil {
				parent := n.ParentID.String()
				node.ParentID = &parent
			}
			out = append(out, node)
		}
		return out
	}
	return build(tree.Roots(), 0)
}
