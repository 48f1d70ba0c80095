package sqlinline

const QInsertGeneratedContent = `--sql 6350c47b-70d3-46f2-a8a5-18d53731bd4e
insert into generated_contents (
  id, user_id, type, prompt, size, aspect_ratio, style, template_id, reference_image,
  generation_params, url, thumbnail, status, created_at, updated_at
)
values (
  $1::uuid, $2::text, $3::text, $4::text, $5::text, $6::text, $7::text, $8::bigint, $9::text,
  coalesce($10::jsonb, '{}'::jsonb), '', '', $11::text, now(), now()
)
returning created_at, updated_at;
`

// QFinalizeGeneratedContent only touches rows still in processing so the
// terminal write is applied at most once.
const QFinalizeGeneratedContent = `--sql 4e237cb9-9701-4a2e-b469-a84a5fe27efb
update generated_contents
set status = $2::text,
    url = coalesce($3::text, url),
    thumbnail = coalesce($4::text, thumbnail),
    urls = $5::jsonb,
    thumbnails = $6::jsonb,
    error_message = $7::text,
    updated_at = now()
where id = $1::uuid
  and status = 'processing';
`

const QGeneratedContentExists = `--sql fc8b3222-941a-4340-a2ca-e6b12cc406ee
select exists(select 1 from generated_contents where id = $1::uuid);
`

const QSelectGeneratedContent = `--sql 20f2d4ad-bfe0-4354-b279-9065492cc914
select id::text, user_id, type, prompt, size, aspect_ratio, style, template_id, reference_image,
       generation_params, url, thumbnail, urls, thumbnails, status, coalesce(error_message, ''),
       created_at, updated_at
from generated_contents
where id = $1::uuid
  and deleted_at is null;
`

// QCountGeneratedContentToday includes deleted rows so deleting a job does
// not give back quota.
const QCountGeneratedContentToday = `--sql 2e35ae28-4a69-4ef7-bd10-2c8c438ccbe4
select count(*)
from generated_contents
where user_id = $1::text
  and created_at >= date_trunc('day', now());
`

const QRecordGenerationTask = `--sql d1bd1c27-e081-4a7f-ad86-a7a801231427
update generated_contents
set generation_params = coalesce(generation_params, '{}'::jsonb) || jsonb_build_object('taskId', $2::text),
    updated_at = now()
where id = $1::uuid;
`

const QListGeneratedContents = `--sql 2068c19e-a2f5-4466-9293-6655335da3c9
select id::text, user_id, type, prompt, size, aspect_ratio, style, template_id, reference_image,
       generation_params, url, thumbnail, urls, thumbnails, status, coalesce(error_message, ''),
       created_at, updated_at
from generated_contents
where user_id = $1::text
  and deleted_at is null
  and ($2::text = '' or type = $2::text)
  and ($3::text = '' or status = $3::text)
order by created_at desc
limit $4::int offset $5::int;
`

const QCountGeneratedContents = `--sql f36ac2e0-d0fe-4cf0-b07f-284b8ae1e9ad
select count(*)
from generated_contents
where user_id = $1::text
  and deleted_at is null
  and ($2::text = '' or type = $2::text)
  and ($3::text = '' or status = $3::text);
`

const QRecentGeneratedContents = `--sql e0d694de-30f6-4647-b09d-9127289e3284
select id::text, user_id, type, prompt, size, aspect_ratio, style, template_id, reference_image,
       generation_params, url, thumbnail, urls, thumbnails, status, coalesce(error_message, ''),
       created_at, updated_at
from generated_contents
where user_id = $1::text
  and deleted_at is null
order by created_at desc
limit $2::int;
`

const QSoftDeleteGeneratedContent = `--sql 2046d262-2be4-4995-8513-1a707359471c
update generated_contents
set deleted_at = now()
where id = $1::uuid
  and user_id = $2::text
  and deleted_at is null;
`

const QSoftDeleteGeneratedContents = `--sql f537c306-e6fa-48c2-a248-f39e9f05a2db
update generated_contents
set deleted_at = now()
where user_id = $1::text
  and id = any($2::text[]::uuid[])
  and deleted_at is null;
`

// QSelectProcessingGeneratedContents feeds the startup resume sweep.
const QSelectProcessingGeneratedContents = `--sql febaf315-bb6f-4e1b-a81c-906ffb37cb1a
select id::text, user_id, type, prompt, size, aspect_ratio, style, template_id, reference_image,
       generation_params, url, thumbnail, urls, thumbnails, status, coalesce(error_message, ''),
       created_at, updated_at
from generated_contents
where status = 'processing'
  and created_at < $1::timestamptz
order by created_at
limit $2::int;
`
