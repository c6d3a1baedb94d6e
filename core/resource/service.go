package resource

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/record"
)

var ErrNotFound = errors.New("resource not found")

type Service struct {
	client  record.Client
	files   FileStore // nil when uploads are disabled
	policy  UploadPolicy
	nowFunc func() time.Time

	countMu sync.Mutex // download counts are only serialized within one process
}

func NewService(client record.Client, files FileStore, policy UploadPolicy) *Service {
	if policy.URLExpiry <= 0 {
		policy.URLExpiry = time.Hour
	}
	return &Service{client: client, files: files, policy: policy, nowFunc: time.Now}
}

func (svc *Service) Query(ctx context.Context, filter Filter) ([]Resource, error) {
	params := record.FetchParams{
		Fields:  fields,
		OrderBy: []core.DBOrdering{orderingFor(filter.Sort)},
	}
	if filter.Category != "" && filter.Category != AllCategories {
		params.Where = append(params.Where, record.Where("category", record.Equals, filter.Category))
	}
	if filter.Type != "" {
		params.Where = append(params.Where, record.Where("type", record.Equals, filter.Type))
	}
	if filter.Featured != nil {
		params.Where = append(params.Where, record.Where("featured", record.Equals, *filter.Featured))
	}
	if search := core.CleanString(filter.Search); search != "" {
		params.WhereGroups = append(params.WhereGroups, record.WhereGroup{
			Operator: record.Or,
			Conditions: []record.Condition{
				record.Where("title", record.Contains, search),
				record.Where("description", record.Contains, search),
			},
		})
	}

	recs, err := svc.client.FetchRecords(ctx, Table, params)
	if err != nil {
		return nil, errors.Wrap(err, "fetching resources")
	}
	return record.DecodeAll[Resource](recs)
}

func orderingFor(sortOrder string) core.DBOrdering {
	switch sortOrder {
	case SortOldest:
		return core.DBOrdering{Field: "date", Ascending: true}
	case SortAZ:
		return core.DBOrdering{Field: "title", Ascending: true}
	case SortZA:
		return core.DBOrdering{Field: "title", Ascending: false}
	}
	return core.DBOrdering{Field: "date", Ascending: false}
}

func (svc *Service) Get(ctx context.Context, id string) (Resource, error) {
	rec, err := svc.client.GetRecordByID(ctx, Table, id, fields...)
	if err != nil {
		if errors.Cause(err) == record.ErrNotFound {
			return Resource{}, ErrNotFound
		}
		return Resource{}, errors.Wrapf(err, "fetching resource %s", id)
	}
	var res Resource
	return res, record.Decode(rec, &res)
}

func (svc *Service) Create(ctx context.Context, nr NewResource) (Resource, error) {
	return svc.create(ctx, nr.record(svc.nowFunc().UTC()))
}

func (svc *Service) create(ctx context.Context, rec record.Record) (Resource, error) {
	results, err := svc.client.CreateRecords(ctx, Table, rec)
	if err != nil {
		return Resource{}, errors.Wrap(err, "creating resource")
	}
	created, err := record.FirstSuccess(results)
	if err != nil {
		return Resource{}, errors.Wrap(err, "creating resource")
	}
	var res Resource
	return res, record.Decode(created, &res)
}

func (svc *Service) Update(ctx context.Context, id string, ur UpdateResource) (Resource, error) {
	orig, err := svc.Get(ctx, id)
	if err != nil {
		return Resource{}, err
	}
	return svc.update(ctx, ur.record(orig))
}

func (svc *Service) update(ctx context.Context, rec record.Record) (Resource, error) {
	results, err := svc.client.UpdateRecords(ctx, Table, rec)
	if err != nil {
		return Resource{}, errors.Wrap(err, "updating resource")
	}
	updated, err := record.FirstSuccess(results)
	if err != nil {
		return Resource{}, errors.Wrap(err, "updating resource")
	}
	var res Resource
	return res, record.Decode(updated, &res)
}

// Delete removes resources along with their stored files.
func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	var keys []string
	if svc.files != nil {
		for _, id := range ids {
			if res, err := svc.Get(ctx, id); err == nil && res.FileKey != "" {
				keys = append(keys, res.FileKey)
			}
		}
	}
	if err := svc.client.DeleteRecords(ctx, Table, ids...); err != nil {
		if errors.Cause(err) == record.ErrNotFound {
			return ErrNotFound
		}
		return errors.Wrap(err, "deleting resources")
	}
	for _, key := range keys {
		if err := svc.files.Remove(ctx, key); err != nil {
			return errors.Wrapf(err, "removing file %s", key)
		}
	}
	return nil
}

// Categories returns the number of resources per category, preceded by the "All" total.
func (svc *Service) Categories(ctx context.Context) ([]CategoryCount, error) {
	recs, err := svc.client.FetchRecords(ctx, Table, record.FetchParams{
		GroupBy:     []string{"category"},
		Aggregators: []record.Aggregator{{Field: record.FieldID, Function: record.Count, Alias: "count"}},
	})
	if err != nil {
		return nil, errors.Wrap(err, "counting resources by category")
	}
	counts, err := record.DecodeAll[CategoryCount](recs)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Name < counts[j].Name })

	total := 0
	for _, c := range counts {
		total += c.Count
	}
	return append([]CategoryCount{{Name: AllCategories, Count: total}}, counts...), nil
}

// Upload stores the file of a new document resource and creates the resource.
// The MIME type is sniffed from the content, not taken from the client.
func (svc *Service) Upload(ctx context.Context, nu NewUpload) (Resource, error) {
	if svc.files == nil {
		return Resource{}, ErrFilesUnavailable
	}
	if nu.File == nil {
		return Resource{}, ErrNoFile
	}
	if svc.policy.MaxSize > 0 && nu.Size > svc.policy.MaxSize {
		return Resource{}, ErrFileTooLarge
	}

	mt, err := mimetype.DetectReader(nu.File)
	if err != nil {
		return Resource{}, errors.Wrap(err, "detecting file type")
	}
	contentType := baseMIME(mt.String())
	if err := svc.policy.Check(nu.Size, contentType); err != nil {
		return Resource{}, err
	}
	if _, err := nu.File.Seek(0, io.SeekStart); err != nil {
		return Resource{}, errors.Wrap(err, "rewinding file")
	}

	filename := SanitizeFilename(nu.Filename)
	key := uuid.NewString() + "/" + filename
	if err := svc.files.Put(ctx, key, nu.File, nu.Size, contentType); err != nil {
		return Resource{}, errors.Wrap(err, "storing file")
	}

	rec := NewResource{
		Title:       nu.Title,
		Description: nu.Description,
		Type:        TypeDocument,
		Category:    nu.Category,
		FileType:    contentType,
		FileSize:    nu.Size,
		Featured:    nu.Featured,
	}.record(svc.nowFunc().UTC())
	rec["file_key"] = key
	rec["file_name"] = filename

	res, err := svc.create(ctx, rec)
	if err != nil {
		_ = svc.files.Remove(ctx, key)
		return Resource{}, err
	}
	return res, nil
}

// DownloadURL returns where the resource can be downloaded from and counts the download.
func (svc *Service) DownloadURL(ctx context.Context, id string) (string, error) {
	res, err := svc.Get(ctx, id)
	if err != nil {
		return "", err
	}

	var url string
	switch {
	case res.Type == TypeLink:
		url = res.URL
	case res.FileKey != "" && svc.files != nil:
		url, err = svc.files.PresignedURL(ctx, res.FileKey, res.FileName, svc.policy.URLExpiry)
		if err != nil {
			return "", errors.Wrap(err, "presigning download URL")
		}
	case res.FileKey != "":
		return "", ErrFilesUnavailable
	}
	if url == "" {
		return "", ErrNoFile
	}

	if err := svc.countDownload(ctx, res.ID); err != nil {
		return "", errors.Wrap(err, "counting download")
	}
	return url, nil
}

func (svc *Service) countDownload(ctx context.Context, id string) error {
	svc.countMu.Lock()
	defer svc.countMu.Unlock()

	rec, err := svc.client.GetRecordByID(ctx, Table, id, "downloads")
	if err != nil {
		return err
	}
	_, err = svc.update(ctx, record.Record{record.FieldID: id, "downloads": record.Int(rec, "downloads") + 1})
	return err
}
