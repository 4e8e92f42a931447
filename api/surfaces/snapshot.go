package surfaces

import (
	"net/http"
	"tableside_server/handling"
	"tableside_server/lib"
	"tableside_server/services"
	"tableside_server/structs"

	"github.com/MonkyMars/gecho"
)

func (srm *SurfaceRoutesManager) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	s, ok := srm.surface(w, r)
	if !ok {
		return
	}

	gecho.Success(w,
		gecho.WithData(s.Snapshot()),
		gecho.Send(),
	)
}

func (srm *SurfaceRoutesManager) GetKitchenBoard(w http.ResponseWriter, r *http.Request) {
	s, err := srm.hub.Get(services.SurfaceKitchen)
	if err != nil {
		handling.HandleError(err, "kitchen surface missing", srm.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithData(services.BuildKitchenBoard(s.Snapshot())),
		gecho.Send(),
	)
}

// UpdateSession toggles the alert sound of a surface.
func (srm *SurfaceRoutesManager) UpdateSession(w http.ResponseWriter, r *http.Request) {
	s, ok := srm.surface(w, r)
	if !ok {
		return
	}

	body, err := lib.ExtractAndValidateBody[structs.SessionUpdateRequest](r)
	if err != nil {
		handling.WriteBodyError(w, err)
		return
	}

	s.Session().SetSoundEnabled(*body.SoundEnabled)

	gecho.Success(w,
		gecho.WithData(s.Session().State()),
		gecho.Send(),
	)
}
